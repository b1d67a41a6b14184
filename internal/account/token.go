package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/tonimelisma/onedrive-index/internal/graph"
)

// RenewalMargin is how long before expiry an access token is renewed.
const RenewalMargin = 300 * time.Second

// TokenRenewer redeems an account's refresh token at the vendor's auth
// endpoint.
type TokenRenewer interface {
	RenewToken(ctx context.Context, acct *Account) (*graph.Grant, error)
}

// InfoFetcher probes the vendor for an account's profile. Each call reports
// through the {errno, data} envelope and never fails outright.
type InfoFetcher interface {
	DriveInfo(ctx context.Context, acct *Account) graph.Result
	AccountInfo(ctx context.Context, acct *Account) graph.Result
}

// Saver persists an account record.
type Saver interface {
	SaveAccount(ctx context.Context, acct *Account) error
}

// Refresher keeps account credentials and profile state current.
type Refresher struct {
	renewer TokenRenewer
	info    InfoFetcher
	saver   Saver
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// NewRefresher builds a Refresher.
func NewRefresher(renewer TokenRenewer, info InfoFetcher, saver Saver, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Refresher{
		renewer: renewer,
		info:    info,
		saver:   saver,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// NeedsRenewal reports whether acct's access token expires within
// RenewalMargin of now.
func NeedsRenewal(acct *Account, now time.Time) bool {
	remaining := acct.AccessTokenExpires.Unix() - now.Unix()
	return remaining <= int64(RenewalMargin/time.Second)
}

// RefreshToken renews acct's access token when it is about to expire, or
// unconditionally when force is set, and persists the new credentials.
// It reports true only when a renewed token was durably saved. A false
// return after a failed save leaves acct holding the new, unsaved tokens.
func (r *Refresher) RefreshToken(ctx context.Context, acct *Account, force bool) bool {
	if acct == nil {
		return false
	}

	now := r.nowFunc()

	if !force && !NeedsRenewal(acct, now) {
		r.logger.Debug("access token still valid",
			slog.Int64("account_id", acct.ID),
			slog.Time("expires", acct.AccessTokenExpires),
		)

		return false
	}

	grant, err := r.renewer.RenewToken(ctx, acct)
	if err != nil {
		r.logger.Warn("access token renewal failed",
			slog.Int64("account_id", acct.ID),
			slog.Bool("forced", force),
			slog.String("error", err.Error()),
		)

		return false
	}

	acct.ApplyGrant(grant, now)

	if err := r.saver.SaveAccount(ctx, acct); err != nil {
		r.logger.Error("renewed access token could not be saved",
			slog.Int64("account_id", acct.ID),
			slog.String("error", err.Error()),
		)

		return false
	}

	r.logger.Info("access token renewed",
		slog.Int64("account_id", acct.ID),
		slog.Time("expires", acct.AccessTokenExpires),
	)

	return true
}

// ApplyGrant copies a token grant onto the account, converting the relative
// lifetime to an absolute expiry from now.
func (a *Account) ApplyGrant(grant *graph.Grant, now time.Time) {
	a.AccessToken = grant.AccessToken
	a.RefreshToken = grant.RefreshToken
	a.AccessTokenExpires = expiryFrom(now, grant.ExpiresIn)
}

// expiryFrom turns a relative lifetime into an absolute expiry. A missing
// lifetime yields the epoch so the next check renews again.
func expiryFrom(now time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Unix(0, 0)
	}

	return now.Add(time.Duration(expiresIn) * time.Second)
}
