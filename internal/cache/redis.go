package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key this program writes.
const keyPrefix = "onedrive-index:"

// Redis is a Cache backed by a Redis (or Dragonfly) server, shared by every
// process pointed at it.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// OpenRedis connects to addr and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: connecting to redis at %s: %w", addr, err)
	}

	logger.Info("connected to redis cache", slog.String("addr", addr), slog.Int("db", db))

	return NewRedis(client, logger), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}

	return &Redis{client: client, logger: logger}
}

// Remember implements Cache. Unlike Memory, concurrent misses in different
// processes may each run the producer; the last SET wins.
func (r *Redis) Remember(ctx context.Context, key string, ttl time.Duration, produce Producer) ([]byte, error) {
	v, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == nil {
		return v, nil
	}

	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache: redis get %s: %w", key, err)
	}

	r.logger.Debug("redis cache miss", slog.String("key", key))

	produced, err := produce(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.client.Set(ctx, keyPrefix+key, produced, ttl).Err(); err != nil {
		// The value is still good for this caller.
		r.logger.Warn("redis cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return produced, nil
}

// Forever implements Cache.
func (r *Redis) Forever(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}

	return nil
}

// Forget implements Cache.
func (r *Redis) Forget(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("cache: redis del %s: %w", key, err)
	}

	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
