package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to the server named by ONEDRIVE_INDEX_TEST_REDIS,
// skipping the test when unset.
func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	addr := os.Getenv("ONEDRIVE_INDEX_TEST_REDIS")
	if addr == "" {
		t.Skip("ONEDRIVE_INDEX_TEST_REDIS not set")
	}

	r, err := OpenRedis(context.Background(), addr, "", 0, nil)
	require.NoError(t, err)

	t.Cleanup(func() { r.Close() })

	return r
}

func TestRedis_RememberForeverForget(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	t.Cleanup(func() { _ = r.Forget(ctx, key) })

	calls := 0
	produce := func(context.Context) ([]byte, error) {
		calls++
		return []byte("produced"), nil
	}

	v, err := r.Remember(ctx, key, time.Minute, produce)
	require.NoError(t, err)
	assert.Equal(t, "produced", string(v))

	v, err = r.Remember(ctx, key, time.Minute, produce)
	require.NoError(t, err)
	assert.Equal(t, "produced", string(v))
	assert.Equal(t, 1, calls)

	require.NoError(t, r.Forever(ctx, key, []byte("forever")))

	v, err = r.Remember(ctx, key, time.Minute, produce)
	require.NoError(t, err)
	assert.Equal(t, "forever", string(v))

	require.NoError(t, r.Forget(ctx, key))

	v, err = r.Remember(ctx, key, time.Minute, produce)
	require.NoError(t, err)
	assert.Equal(t, "produced", string(v))
	assert.Equal(t, 2, calls)
}

func TestRedis_ProducerErrorNotCached(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	t.Cleanup(func() { _ = r.Forget(ctx, key) })

	boom := errors.New("boom")

	_, err := r.Remember(ctx, key, time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := r.client.Exists(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestOpenRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := OpenRedis(ctx, "127.0.0.1:1", "", 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to redis")
}
