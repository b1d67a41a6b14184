package store

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level logger that writes to t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	return db
}

func TestOpen_CreatesSchema(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(context.Background(), dbPath, testLogger(t))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	raw, err := sql.Open("sqlite", "file:"+dbPath)
	require.NoError(t, err)
	defer raw.Close()

	for _, table := range []string{"settings", "accounts"} {
		var name string

		err := raw.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestOpen_Reopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	db, err := Open(ctx, dbPath, testLogger(t))
	require.NoError(t, err)
	require.NoError(t, db.UpsertSetting(ctx, "site_name", "Index"))
	require.NoError(t, db.Close())

	// Migrations are idempotent and data survives.
	db, err = Open(ctx, dbPath, testLogger(t))
	require.NoError(t, err)
	defer db.Close()

	got, err := db.ListSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Setting{{Name: "site_name", Value: "Index"}}, got)
}

func TestSettings_UpsertAndList(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	got, err := db.ListSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, db.UpsertSetting(ctx, "b", "2"))
	require.NoError(t, db.UpsertSetting(ctx, "a", "1"))
	require.NoError(t, db.UpsertSetting(ctx, "b", "22"))

	got, err = db.ListSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Setting{{Name: "a", Value: "1"}, {Name: "b", Value: "22"}}, got)
}

func TestSettings_UpsertKeepsCreatedAt(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db.nowFunc = func() time.Time { return t0 }
	require.NoError(t, db.UpsertSetting(ctx, "k", "v1"))

	db.nowFunc = func() time.Time { return t0.Add(time.Hour) }
	require.NoError(t, db.UpsertSetting(ctx, "k", "v2"))

	var created, updated int64

	require.NoError(t, db.db.QueryRow(`SELECT created_at, updated_at FROM settings WHERE name = 'k'`).
		Scan(&created, &updated))
	assert.Equal(t, t0.UnixNano(), created)
	assert.Equal(t, t0.Add(time.Hour).UnixNano(), updated)
}

func TestSettings_Delete(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertSetting(ctx, "k", "v"))
	require.NoError(t, db.DeleteSetting(ctx, "k"))
	require.NoError(t, db.DeleteSetting(ctx, "missing"))

	got, err := db.ListSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSettings_ClosedDBFails(t *testing.T) {
	t.Parallel()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), testLogger(t))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.ListSettings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store: listing settings")
}
