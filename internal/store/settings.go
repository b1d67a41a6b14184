package store

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	sqlUpsertSetting = `INSERT INTO settings (name, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
		 value = excluded.value,
		 updated_at = excluded.updated_at`

	sqlListSettings = `SELECT name, value FROM settings ORDER BY name`

	sqlDeleteSetting = `DELETE FROM settings WHERE name = ?`
)

// Setting is one persisted name/value pair.
type Setting struct {
	Name  string
	Value string
}

// UpsertSetting creates or replaces the setting called name.
func (d *DB) UpsertSetting(ctx context.Context, name, value string) error {
	now := d.nowFunc().UnixNano()

	if _, err := d.db.ExecContext(ctx, sqlUpsertSetting, name, value, now, now); err != nil {
		return fmt.Errorf("store: upserting setting %s: %w", name, err)
	}

	d.logger.Debug("setting upserted", slog.String("name", name))

	return nil
}

// ListSettings returns every persisted setting ordered by name.
func (d *DB) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := d.db.QueryContext(ctx, sqlListSettings)
	if err != nil {
		return nil, fmt.Errorf("store: listing settings: %w", err)
	}
	defer rows.Close()

	var out []Setting

	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Name, &s.Value); err != nil {
			return nil, fmt.Errorf("store: scanning setting row: %w", err)
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating setting rows: %w", err)
	}

	return out, nil
}

// DeleteSetting removes the setting called name. Deleting a missing
// setting is not an error.
func (d *DB) DeleteSetting(ctx context.Context, name string) error {
	if _, err := d.db.ExecContext(ctx, sqlDeleteSetting, name); err != nil {
		return fmt.Errorf("store: deleting setting %s: %w", name, err)
	}

	return nil
}
