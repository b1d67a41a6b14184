package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelta_InitialPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/drive/root/delta", r.URL.Path)
		fmt.Fprint(w, `{"value":[{"id":"gone","deleted":{}}],"@odata.deltaLink":"https://graph.invalid/delta?token=t1"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	page, err := client.Delta(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].IsDeleted)
	assert.True(t, page.Items[0].ModifiedAt.IsZero())
	assert.Empty(t, page.NextLink)
	assert.Equal(t, "https://graph.invalid/delta?token=t1", page.DeltaLink)
}

func TestDeltaAll_FollowsNextLinkUntilDeltaLink(t *testing.T) {
	var calls atomic.Int32

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			fmt.Fprintf(w, `{"value":[{"id":"1","createdDateTime":"2024-01-01T00:00:00Z","lastModifiedDateTime":"2024-01-01T00:00:00Z"}],
				"@odata.nextLink":"%s/me/drive/root/delta?token=page2"}`, srv.URL)
		default:
			assert.Equal(t, "page2", r.URL.Query().Get("token"))
			fmt.Fprintf(w, `{"value":[{"id":"2","createdDateTime":"2024-01-01T00:00:00Z","lastModifiedDateTime":"2024-01-01T00:00:00Z"}],
				"@odata.deltaLink":"%s/me/drive/root/delta?token=done"}`, srv.URL)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	items, link, err := client.DeltaAll(context.Background(), "")
	require.NoError(t, err)

	assert.Len(t, items, 2)
	assert.Equal(t, srv.URL+"/me/drive/root/delta?token=done", link)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDeltaAll_NeitherLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	items, link, err := client.DeltaAll(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, link)
}

func TestDelta_Gone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
		fmt.Fprint(w, `{"error":{"code":"resyncRequired"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, _, err := client.DeltaAll(context.Background(), srv.URL+"/me/drive/root/delta?token=old")
	assert.ErrorIs(t, err, ErrGone)
}
