package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constProducer(v string, calls *atomic.Int32) Producer {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(v), nil
	}
}

func TestMemory_RememberCachesValue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var calls atomic.Int32

	v, err := m.Remember(ctx, "k", time.Hour, constProducer("one", &calls))
	require.NoError(t, err)
	assert.Equal(t, "one", string(v))

	v, err = m.Remember(ctx, "k", time.Hour, constProducer("two", &calls))
	require.NoError(t, err)
	assert.Equal(t, "one", string(v))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemory_RememberExpires(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.nowFunc = func() time.Time { return now }

	ctx := context.Background()

	var calls atomic.Int32

	_, err := m.Remember(ctx, "k", 2*time.Hour, constProducer("a", &calls))
	require.NoError(t, err)

	now = now.Add(2*time.Hour - time.Second)
	v, err := m.Remember(ctx, "k", 2*time.Hour, constProducer("b", &calls))
	require.NoError(t, err)
	assert.Equal(t, "a", string(v))

	now = now.Add(time.Second)
	v, err = m.Remember(ctx, "k", 2*time.Hour, constProducer("b", &calls))
	require.NoError(t, err)
	assert.Equal(t, "b", string(v))
	assert.Equal(t, int32(2), calls.Load())
}

func TestMemory_ProducerErrorNotCached(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := m.Remember(ctx, "k", time.Hour, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	var calls atomic.Int32

	v, err := m.Remember(ctx, "k", time.Hour, constProducer("ok", &calls))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(v))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemory_ForeverOverridesAndNeverExpires(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.nowFunc = func() time.Time { return now }

	ctx := context.Background()

	var calls atomic.Int32

	_, err := m.Remember(ctx, "k", time.Minute, constProducer("old", &calls))
	require.NoError(t, err)

	require.NoError(t, m.Forever(ctx, "k", []byte("new")))

	now = now.Add(365 * 24 * time.Hour)
	v, err := m.Remember(ctx, "k", time.Minute, constProducer("produced", &calls))
	require.NoError(t, err)
	assert.Equal(t, "new", string(v))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemory_Forget(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Forever(ctx, "k", []byte("v")))
	require.NoError(t, m.Forget(ctx, "k"))
	require.NoError(t, m.Forget(ctx, "missing"))

	var calls atomic.Int32

	v, err := m.Remember(ctx, "k", 0, constProducer("fresh", &calls))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(v))
}

func TestMemory_ConcurrentMissesShareProducer(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	release := make(chan struct{})

	var calls atomic.Int32

	produce := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release

		return []byte("v"), nil
	}

	const n = 8

	var wg sync.WaitGroup

	results := make([]string, n)

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			v, err := m.Remember(ctx, "k", time.Hour, produce)
			assert.NoError(t, err)

			results[i] = string(v)
		}()
	}

	// Give the goroutines a moment to pile up on the miss.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "v", r)
	}

	// Late arrivals after the flight completed hit the stored entry.
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpen_Drivers(t *testing.T) {
	c, err := Open(context.Background(), Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	c, err = Open(context.Background(), Options{Driver: DriverMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = Open(context.Background(), Options{Driver: "memcached"}, nil)
	assert.ErrorContains(t, err, "unknown driver")
}

func TestMemory_RememberAfterConcurrentForeverIsLastWriteWins(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// The producer read "old" before a writer stored "new" forever.
	stale := func(ctx context.Context) ([]byte, error) {
		require.NoError(t, m.Forever(ctx, "k", []byte("new")))
		return []byte("old"), nil
	}

	v, err := m.Remember(ctx, "k", time.Hour, stale)
	require.NoError(t, err)
	assert.Equal(t, "old", string(v))

	var calls atomic.Int32

	v, err = m.Remember(ctx, "k", time.Hour, constProducer("unused", &calls))
	require.NoError(t, err)
	assert.Equal(t, "old", string(v))
	assert.Zero(t, calls.Load())

	require.NoError(t, m.Forever(ctx, "k", []byte("new")))

	v, err = m.Remember(ctx, "k", time.Hour, constProducer("unused", &calls))
	require.NoError(t, err)
	assert.Equal(t, "new", string(v))
}
