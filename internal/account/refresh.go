package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var errNilAccount = errors.New("account: nil account")

// RefreshAccount renews the token if needed, then probes the drive-info
// endpoint and records the outcome. A reachable drive turns the account on;
// otherwise the basic profile is fetched for the email and the account is
// turned off. It returns true once the record has been handed to the saver,
// even when the save fails (the failure is logged); only a nil account
// yields false. Callers that must know whether the save landed use
// SyncAccount.
func (r *Refresher) RefreshAccount(ctx context.Context, acct *Account) bool {
	if acct == nil {
		return false
	}

	if err := r.SyncAccount(ctx, acct); err != nil {
		r.logger.Error("account state could not be saved",
			slog.Int64("account_id", acct.ID),
			slog.String("error", err.Error()),
		)
	}

	return true
}

// SyncAccount does the work of RefreshAccount and returns the save error.
func (r *Refresher) SyncAccount(ctx context.Context, acct *Account) error {
	if acct == nil {
		return errNilAccount
	}

	// Best effort; a stale token shows up as a failed probe below.
	r.RefreshToken(ctx, acct, false)

	drive := r.info.DriveInfo(ctx, acct)
	if drive.OK() {
		acct.Email = nestedString(drive.Data, "owner", "user", "email")
		acct.Extend = nonNil(drive.Data)
		acct.Status = StatusOn
	} else {
		r.logger.Warn("drive info probe failed, falling back to basic profile",
			slog.Int64("account_id", acct.ID),
			slog.Int("errno", drive.Errno),
			slog.String("message", drive.Message),
		)

		basic := r.info.AccountInfo(ctx, acct)

		acct.Email = ""
		if basic.OK() {
			acct.Email = nestedString(basic.Data, "userPrincipalName")
		}

		acct.Extend = nonNil(basic.Data)
		acct.Status = StatusOff
	}

	if err := r.saver.SaveAccount(ctx, acct); err != nil {
		return fmt.Errorf("saving account %d: %w", acct.ID, err)
	}

	r.logger.Info("account refreshed",
		slog.Int64("account_id", acct.ID),
		slog.String("status", acct.Status.String()),
	)

	return nil
}

// nestedString walks data along keys and returns the string found there, or
// "" when any step is missing or of the wrong type.
func nestedString(data map[string]any, keys ...string) string {
	var cur any = data

	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}

		cur = m[k]
	}

	s, _ := cur.(string)

	return s
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}
