package account

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/onedrive-index/internal/graph"
)

// Vendor binds an account's stored credentials to the Graph and identity
// endpoints. It satisfies TokenRenewer and InfoFetcher.
type Vendor struct {
	httpClient   *http.Client
	logger       *slog.Logger
	userAgent    string
	graphURL     string // overrides graph.BaseURL when set
	authorityURL string // overrides the cloud's identity endpoint when set
}

// VendorOption configures a Vendor.
type VendorOption func(*Vendor)

// WithGraphURL sends Graph requests to u instead of the account's cloud.
func WithGraphURL(u string) VendorOption {
	return func(v *Vendor) { v.graphURL = u }
}

// WithAuthorityURL sends token requests to u instead of the account's cloud.
func WithAuthorityURL(u string) VendorOption {
	return func(v *Vendor) { v.authorityURL = u }
}

// NewVendor builds a Vendor. httpClient nil = http.DefaultClient.
func NewVendor(httpClient *http.Client, logger *slog.Logger, userAgent string, opts ...VendorOption) *Vendor {
	if logger == nil {
		logger = slog.Default()
	}

	v := &Vendor{
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Authenticator returns the token endpoint client for acct's application.
func (v *Vendor) Authenticator(acct *Account) *graph.Authenticator {
	creds := acct.Credentials()
	creds.AuthorityURL = v.authorityURL

	return graph.NewAuthenticator(creds, v.httpClient, v.logger.With(slog.Int64("account_id", acct.ID)))
}

// Client returns a Graph client presenting acct's current access token.
func (v *Vendor) Client(acct *Account) *graph.Client {
	base := v.graphURL
	if base == "" {
		base = graph.BaseURL(acct.Cloud)
	}

	return graph.NewClient(base, v.httpClient, graph.StaticToken(acct.AccessToken),
		v.logger.With(slog.Int64("account_id", acct.ID)), v.userAgent)
}

// RenewToken implements TokenRenewer.
func (v *Vendor) RenewToken(ctx context.Context, acct *Account) (*graph.Grant, error) {
	return v.Authenticator(acct).RefreshAccessToken(ctx, acct.RefreshToken)
}

// DriveInfo implements InfoFetcher.
func (v *Vendor) DriveInfo(ctx context.Context, acct *Account) graph.Result {
	return v.Client(acct).DriveInfo(ctx)
}

// AccountInfo implements InfoFetcher.
func (v *Vendor) AccountInfo(ctx context.Context, acct *Account) graph.Result {
	return v.Client(acct).AccountInfo(ctx)
}
