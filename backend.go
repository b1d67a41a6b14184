package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tonimelisma/onedrive-index/internal/cache"
	"github.com/tonimelisma/onedrive-index/internal/settings"
	"github.com/tonimelisma/onedrive-index/internal/store"
)

// backend bundles the database, the settings cache, and the settings
// service built on them. Commands open one per invocation and close it.
type backend struct {
	db       *store.DB
	cache    cache.Cache
	settings *settings.Service
}

// openBackend opens the configured database (creating its directory) and
// cache backend.
func (cc *CLIContext) openBackend(ctx context.Context) (*backend, error) {
	dbPath := cc.Cfg.DBPath()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := store.Open(ctx, dbPath, cc.Logger)
	if err != nil {
		return nil, err
	}

	c, err := cache.Open(ctx, cache.Options{
		Driver:        cc.Cfg.Cache.Driver,
		RedisAddr:     cc.Cfg.Cache.RedisAddr,
		RedisPassword: cc.Cfg.Cache.RedisPassword,
		RedisDB:       cc.Cfg.Cache.RedisDB,
	}, cc.Logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &backend{
		db:       db,
		cache:    c,
		settings: settings.New(db, c, cc.Logger, settings.WithTTL(cc.Cfg.Cache.TTL())),
	}, nil
}

// Close releases the cache connection (if any) and the database.
func (b *backend) Close() error {
	var errs []error

	if closer, ok := b.cache.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}

	errs = append(errs, b.db.Close())

	return errors.Join(errs...)
}
