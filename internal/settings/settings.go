// Package settings is a write-through cache over the persisted settings
// table. Reads are served from a single cached mapping; every write goes
// to the store first and then replaces the cached mapping.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tonimelisma/onedrive-index/internal/cache"
	"github.com/tonimelisma/onedrive-index/internal/store"
)

// CacheKey is the cache entry holding the whole settings mapping.
const CacheKey = "settings"

// DefaultTTL bounds how long a read-through mapping may be served.
const DefaultTTL = 2 * time.Hour

// errStoreUnavailable marks failures of the persistent store, as opposed to
// the cache backend.
var errStoreUnavailable = errors.New("settings: store unavailable")

// Store is the persistent settings table.
type Store interface {
	UpsertSetting(ctx context.Context, name, value string) error
	DeleteSetting(ctx context.Context, name string) error
	ListSettings(ctx context.Context) ([]store.Setting, error)
}

// Service serves settings reads from cache and writes through to Store.
type Service struct {
	store  Store
	cache  cache.Cache
	logger *slog.Logger
	ttl    time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL for read-through entries.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// New builds a Service.
func New(st Store, c cache.Cache, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		store:  st,
		cache:  c,
		logger: logger,
		ttl:    DefaultTTL,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load returns the cached mapping, reading it through from the store on a
// miss. Unlike All, it reports why the mapping could not be produced.
// A failing cache backend is bypassed and the store is read directly.
func (s *Service) Load(ctx context.Context) (map[string]string, error) {
	b, err := s.cache.Remember(ctx, CacheKey, s.ttl, func(ctx context.Context) ([]byte, error) {
		m, err := s.load(ctx)
		if err != nil {
			return nil, err
		}

		return json.Marshal(m)
	})

	switch {
	case errors.Is(err, errStoreUnavailable):
		return nil, err
	case err != nil:
		s.logger.Warn("settings cache unavailable, reading store directly",
			slog.String("error", err.Error()),
		)

		return s.load(ctx)
	}

	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		s.logger.Warn("discarding undecodable settings cache entry",
			slog.String("error", err.Error()),
		)

		if ferr := s.cache.Forget(ctx, CacheKey); ferr != nil {
			s.logger.Warn("forgetting settings cache entry failed", slog.String("error", ferr.Error()))
		}

		return s.load(ctx)
	}

	return m, nil
}

// All returns the whole settings mapping. A store failure yields an empty
// mapping so lookups fall back to their defaults; the failure is logged and
// not cached.
func (s *Service) All(ctx context.Context) map[string]string {
	m, err := s.Load(ctx)
	if err != nil {
		s.logger.Warn("settings unavailable, using defaults", slog.String("error", err.Error()))
		return map[string]string{}
	}

	return m
}

// Get returns the value stored under key, or def when absent. An empty key
// also yields def; the whole mapping is read with All.
func (s *Service) Get(ctx context.Context, key, def string) string {
	if key == "" {
		return def
	}

	if v, ok := s.All(ctx)[key]; ok {
		return v
	}

	return def
}

// Bool reads key as a boolean. "1", "true", "on", and "yes" are true;
// "0", "false", "off", "no", and "" are false; anything else yields def.
func (s *Service) Bool(ctx context.Context, key string, def bool) bool {
	v, ok := s.All(ctx)[key]
	if !ok {
		return def
	}

	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	case "0", "false", "off", "no", "":
		return false
	default:
		return def
	}
}

// Int reads key as a base-10 integer, or def when absent or malformed.
func (s *Service) Int(ctx context.Context, key string, def int) int {
	v, ok := s.All(ctx)[key]
	if !ok {
		return def
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}

	return n
}

// Decode JSON-decodes the structured value under key into dst. found is
// false when the key is absent.
func (s *Service) Decode(ctx context.Context, key string, dst any) (found bool, err error) {
	v, ok := s.All(ctx)[key]
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal([]byte(v), dst); err != nil {
		return true, fmt.Errorf("settings: decoding %s: %w", key, err)
	}

	return true, nil
}

// Set persists value under key and replaces the cached mapping, which it
// returns.
func (s *Service) Set(ctx context.Context, key string, value Value) (map[string]string, error) {
	if key == "" {
		return nil, errors.New("settings: empty key")
	}

	if err := s.store.UpsertSetting(ctx, key, value.String()); err != nil {
		return nil, fmt.Errorf("settings: saving %s: %w", key, err)
	}

	s.logger.Info("setting updated", slog.String("key", key))

	return s.refreshAfterWrite(ctx)
}

// Delete removes key and replaces the cached mapping, which it returns.
func (s *Service) Delete(ctx context.Context, key string) (map[string]string, error) {
	if err := s.store.DeleteSetting(ctx, key); err != nil {
		return nil, fmt.Errorf("settings: deleting %s: %w", key, err)
	}

	s.logger.Info("setting deleted", slog.String("key", key))

	return s.refreshAfterWrite(ctx)
}

// refreshAfterWrite rebuilds the cache after a committed write. If that
// fails the entry is dropped so no reader sees the pre-write mapping.
func (s *Service) refreshAfterWrite(ctx context.Context) (map[string]string, error) {
	m, err := s.Refresh(ctx)
	if err == nil {
		return m, nil
	}

	if ferr := s.cache.Forget(ctx, CacheKey); ferr != nil {
		s.logger.Error("settings cache may be stale after write",
			slog.String("error", ferr.Error()),
		)
	}

	return nil, err
}

// Refresh reloads the whole table and stores it in the cache with no
// expiry.
func (s *Service) Refresh(ctx context.Context) (map[string]string, error) {
	m, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("settings: encoding mapping: %w", err)
	}

	if err := s.cache.Forever(ctx, CacheKey, b); err != nil {
		return nil, fmt.Errorf("settings: caching mapping: %w", err)
	}

	s.logger.Debug("settings cache refreshed", slog.Int("count", len(m)))

	return m, nil
}

func (s *Service) load(ctx context.Context) (map[string]string, error) {
	rows, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errStoreUnavailable, err)
	}

	m := make(map[string]string, len(rows))
	for _, r := range rows {
		m[r.Name] = r.Value
	}

	return m, nil
}
