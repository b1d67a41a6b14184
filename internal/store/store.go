// Package store persists settings and bound accounts in a local SQLite
// database. It is the only package that issues SQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// DB is the settings and account store. Safe for concurrent use; writes
// are serialized on a single connection.
type DB struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the SQLite database at dbPath and runs
// migrations. The database uses WAL mode with synchronous=FULL.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("store opened", slog.String("db_path", dbPath))

	return &DB{
		db:      db,
		logger:  logger,
		nowFunc: time.Now,
	}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}
