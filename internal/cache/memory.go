package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value    []byte
	expireAt time.Time // zero => no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// Memory is an in-process Cache. Concurrent misses for the same key share
// one producer call. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	// nowFunc returns the current time. Tests override it.
	nowFunc func() time.Time
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		nowFunc: time.Now,
	}
}

func (m *Memory) lookup(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || e.expired(m.nowFunc()) {
		return nil, false
	}

	return e.value, true
}

func (m *Memory) store(key string, value []byte, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expireAt = m.nowFunc().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
}

// Remember implements Cache. Writes are last-write-wins: a producer that
// read its source before a concurrent Forever can store its older value
// after that Forever, and the older value then lives for ttl. Callers that
// need the newer value to stick must Forget or Forever again.
func (m *Memory) Remember(ctx context.Context, key string, ttl time.Duration, produce Producer) ([]byte, error) {
	if v, ok := m.lookup(key); ok {
		return v, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := m.lookup(key); ok {
			return v, nil
		}

		produced, err := produce(ctx)
		if err != nil {
			return nil, err
		}

		m.store(key, produced, ttl)

		return produced, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

// Forever implements Cache.
func (m *Memory) Forever(_ context.Context, key string, value []byte) error {
	m.store(key, value, 0)
	return nil
}

// Forget implements Cache.
func (m *Memory) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()

	return nil
}
