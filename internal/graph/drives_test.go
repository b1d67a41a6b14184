package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "user-abc-123",
			"displayName": "Test User",
			"mail": "test@example.com",
			"userPrincipalName": "test_upn@example.com"
		}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	user, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "user-abc-123", user.ID)
	assert.Equal(t, "Test User", user.DisplayName)
	// When mail is present, it takes priority over UPN.
	assert.Equal(t, "test@example.com", user.Email)
}

func TestMe_EmailFallbackToUPN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Personal accounts often have empty mail field.
		fmt.Fprint(w, `{"id":"user-personal","mail":"","userPrincipalName":"personal@outlook.com"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "personal@outlook.com", user.Email)
}

func TestMe_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("request-id", "req-401")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":"InvalidAuthenticationToken"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDrives_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/drives", r.URL.Path)

		fmt.Fprint(w, `{
			"value": [
				{
					"id": "drive-1",
					"name": "OneDrive",
					"driveType": "personal",
					"owner": {"user": {"displayName": "Test User", "email": "test@example.com"}},
					"quota": {"used": 1073741824, "total": 5368709120}
				},
				{
					"id": "drive-2",
					"name": "SharePoint Docs",
					"driveType": "documentLibrary"
				}
			]
		}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	drives, err := client.Drives(context.Background())
	require.NoError(t, err)
	require.Len(t, drives, 2)

	assert.Equal(t, "drive-1", drives[0].ID)
	assert.Equal(t, "Test User", drives[0].OwnerName)
	assert.Equal(t, "test@example.com", drives[0].OwnerEmail)
	assert.Equal(t, int64(1073741824), drives[0].QuotaUsed)
	assert.Equal(t, int64(5368709120), drives[0].QuotaTotal)

	// Nil owner and quota facets are tolerated.
	assert.Equal(t, "documentLibrary", drives[1].DriveType)
	assert.Empty(t, drives[1].OwnerName)
	assert.Zero(t, drives[1].QuotaTotal)
}

func TestDrives_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"value": []}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	drives, err := client.Drives(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drives)
}

func TestDriveInfo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/drive", r.URL.Path)
		fmt.Fprint(w, `{"id":"d1","owner":{"user":{"email":"a@b.com"}},"quota":{"used":10,"total":100}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	res := client.DriveInfo(context.Background())

	require.True(t, res.OK())
	assert.Equal(t, 0, res.Errno)
	assert.Equal(t, "d1", res.Data["id"])

	drive, err := DriveFromData(res.Data)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", drive.OwnerEmail)
	assert.Equal(t, int64(100), drive.QuotaTotal)
}

func TestDriveInfo_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":"accessDenied","message":"no drive"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	res := client.DriveInfo(context.Background())

	assert.False(t, res.OK())
	assert.Equal(t, http.StatusForbidden, res.Errno)
	assert.Equal(t, "no drive", res.Message)
	assert.Equal(t, "accessDenied", res.Data["code"])
}

func TestAccountInfo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		fmt.Fprint(w, `{"userPrincipalName":"x@y.com"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	res := client.AccountInfo(context.Background())

	require.True(t, res.OK())
	assert.Equal(t, "x@y.com", res.Data["userPrincipalName"])
}

func TestAccountInfo_TransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", http.DefaultClient, StaticToken(""), nil, "")
	client.sleepFunc = noopSleep

	res := client.AccountInfo(context.Background())

	assert.Equal(t, ErrnoTransport, res.Errno)
	assert.NotEmpty(t, res.Message)
	assert.NotNil(t, res.Data)
}

func TestDriveFromData_JSONNumbersAndFloats(t *testing.T) {
	fromNumber, err := DriveFromData(map[string]any{
		"id":    "x",
		"quota": map[string]any{"used": json.Number("5"), "total": json.Number("10")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), fromNumber.QuotaTotal)

	fromFloat, err := DriveFromData(map[string]any{
		"quota": map[string]any{"total": float64(2048)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2048), fromFloat.QuotaTotal)
}
