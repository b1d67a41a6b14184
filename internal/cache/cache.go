// Package cache provides the process-wide key/value cache used for
// read-through lookups such as the settings mapping.
//
// Values are opaque bytes; callers own the encoding. Two backends exist:
// an in-process Memory cache and a Redis-backed cache shared between
// processes.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Producer computes a value on a cache miss.
type Producer func(ctx context.Context) ([]byte, error)

// Cache is the contract shared by all backends.
//
// Remember returns the cached value for key, or runs produce, stores its
// result for ttl (zero = no expiry) and returns it. A producer error is
// returned as-is and nothing is stored. Forever stores value with no
// expiry, replacing any existing entry. Forget removes key; forgetting a
// missing key is not an error.
type Cache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, produce Producer) ([]byte, error)
	Forever(ctx context.Context, key string, value []byte) error
	Forget(ctx context.Context, key string) error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Options configures Open.
type Options struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the backend named by opts.Driver. An empty driver selects
// the memory cache.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Driver {
	case "", DriverMemory:
		logger.Debug("using in-process cache")
		return NewMemory(), nil
	case DriverRedis:
		r, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, logger)
		if err != nil {
			return nil, err
		}

		return r, nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", opts.Driver)
	}
}
