package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tonimelisma/onedrive-index/internal/account"
	"github.com/tonimelisma/onedrive-index/internal/graph"
)

// ErrAccountNotFound is returned when no account row has the requested id.
var ErrAccountNotFound = errors.New("store: account not found")

const accountColumns = `id, account_type, remark, client_id, client_secret, redirect_uri,
		access_token, refresh_token, access_token_expires, account_email, extend,
		status, created_at, updated_at`

const (
	sqlInsertAccount = `INSERT INTO accounts
		(account_type, remark, client_id, client_secret, redirect_uri,
		 access_token, refresh_token, access_token_expires, account_email, extend,
		 status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlGetAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	sqlListAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

	sqlUpdateAccount = `UPDATE accounts SET
		 account_type = ?, remark = ?, client_id = ?, client_secret = ?, redirect_uri = ?,
		 access_token = ?, refresh_token = ?, access_token_expires = ?,
		 account_email = ?, extend = ?, status = ?, updated_at = ?
		WHERE id = ?` //nolint:gosec // G101: column names, not credentials

	sqlDeleteAccount = `DELETE FROM accounts WHERE id = ?`
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateAccount inserts acct and sets its ID and timestamps.
func (d *DB) CreateAccount(ctx context.Context, acct *account.Account) error {
	extend, err := encodeExtend(acct.Extend)
	if err != nil {
		return err
	}

	now := d.nowFunc()

	res, err := d.db.ExecContext(ctx, sqlInsertAccount,
		string(acct.Cloud), acct.Remark, acct.ClientID, acct.ClientSecret, acct.RedirectURI,
		acct.AccessToken, acct.RefreshToken, unixSeconds(acct.AccessTokenExpires),
		acct.Email, extend, int(acct.Status), now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store: inserting account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: reading new account id: %w", err)
	}

	acct.ID = id
	acct.CreatedAt = now
	acct.UpdatedAt = now

	d.logger.Info("account created", slog.Int64("account_id", id))

	return nil
}

// GetAccount loads the account with the given id.
func (d *DB) GetAccount(ctx context.Context, id int64) (*account.Account, error) {
	acct, err := scanAccount(d.db.QueryRowContext(ctx, sqlGetAccount, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrAccountNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("store: loading account %d: %w", id, err)
	}

	return acct, nil
}

// ListAccounts returns every account ordered by id.
func (d *DB) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	rows, err := d.db.QueryContext(ctx, sqlListAccounts)
	if err != nil {
		return nil, fmt.Errorf("store: listing accounts: %w", err)
	}
	defer rows.Close()

	var out []*account.Account

	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning account row: %w", err)
		}

		out = append(out, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating account rows: %w", err)
	}

	return out, nil
}

// SaveAccount writes every mutable field of acct in one transaction.
// Returns ErrAccountNotFound when the row no longer exists.
func (d *DB) SaveAccount(ctx context.Context, acct *account.Account) error {
	extend, err := encodeExtend(acct.Extend)
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: beginning account save: %w", err)
	}
	defer tx.Rollback()

	now := d.nowFunc()

	res, err := tx.ExecContext(ctx, sqlUpdateAccount,
		string(acct.Cloud), acct.Remark, acct.ClientID, acct.ClientSecret, acct.RedirectURI,
		acct.AccessToken, acct.RefreshToken, unixSeconds(acct.AccessTokenExpires),
		acct.Email, extend, int(acct.Status), now.UnixNano(),
		acct.ID,
	)
	if err != nil {
		return fmt.Errorf("store: updating account %d: %w", acct.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: updating account %d: %w", acct.ID, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %d", ErrAccountNotFound, acct.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing account %d: %w", acct.ID, err)
	}

	acct.UpdatedAt = now

	d.logger.Debug("account saved",
		slog.Int64("account_id", acct.ID),
		slog.String("status", acct.Status.String()),
	)

	return nil
}

// DeleteAccount removes the account with the given id.
func (d *DB) DeleteAccount(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, sqlDeleteAccount, id)
	if err != nil {
		return fmt.Errorf("store: deleting account %d: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrAccountNotFound, id)
	}

	d.logger.Info("account deleted", slog.Int64("account_id", id))

	return nil
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var (
		a                    account.Account
		cloud                string
		expires              int64
		extend               string
		status               int
		createdAt, updatedAt int64
	)

	if err := row.Scan(
		&a.ID, &cloud, &a.Remark, &a.ClientID, &a.ClientSecret, &a.RedirectURI,
		&a.AccessToken, &a.RefreshToken, &expires, &a.Email, &extend,
		&status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	ext, err := decodeExtend(extend)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", a.ID, err)
	}

	a.Cloud = graph.Cloud(cloud)
	a.AccessTokenExpires = time.Unix(expires, 0)
	a.Extend = ext
	a.Status = account.Status(status)
	a.CreatedAt = time.Unix(0, createdAt)
	a.UpdatedAt = time.Unix(0, updatedAt)

	return &a, nil
}

// unixSeconds maps the zero time to 0 so an unset expiry reads back as the
// epoch.
func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.Unix()
}

func encodeExtend(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("store: encoding account extend: %w", err)
	}

	return string(b), nil
}

// decodeExtend keeps numbers as json.Number so quota values survive intact.
func decodeExtend(s string) (map[string]any, error) {
	m := map[string]any{}
	if s == "" {
		return m, nil
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding extend: %w", err)
	}

	return m, nil
}
