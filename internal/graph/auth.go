package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

var defaultScopes = []string{
	"offline_access",
	"Files.ReadWrite.All",
	"User.Read",
}

// chinaTenantEndpoint is the 21Vianet-operated identity platform.
var chinaTenantEndpoint = oauth2.Endpoint{
	AuthURL:   "https://login.chinacloudapi.cn/common/oauth2/v2.0/authorize",
	TokenURL:  "https://login.chinacloudapi.cn/common/oauth2/v2.0/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Credentials identify the Azure AD application an account is bound to.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Cloud        Cloud
	// AuthorityURL replaces the cloud's identity endpoint when set, for
	// example "https://login.example.test/common".
	AuthorityURL string
}

// Grant is the outcome of a token request. ExpiresIn is the lifetime in
// seconds as reported by the endpoint; 0 means the field was absent.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Authenticator talks to the OAuth2 token endpoint for one application.
type Authenticator struct {
	cfg        *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAuthenticator builds an Authenticator for creds. httpClient is used for
// token requests (nil = http.DefaultClient).
func NewAuthenticator(creds Credentials, httpClient *http.Client, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Authenticator{
		cfg: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       defaultScopes,
			Endpoint:     endpointFor(creds),
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// endpointFor returns the v2.0 endpoint for the cloud. Microsoft accepts
// client credentials in the form body, which avoids oauth2's auth-style probe.
func endpointFor(creds Credentials) oauth2.Endpoint {
	if creds.AuthorityURL != "" {
		base := strings.TrimSuffix(creds.AuthorityURL, "/")

		return oauth2.Endpoint{
			AuthURL:   base + "/oauth2/v2.0/authorize",
			TokenURL:  base + "/oauth2/v2.0/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}

	if creds.Cloud == CloudChina {
		return chinaTenantEndpoint
	}

	ep := microsoft.AzureADEndpoint("common")
	ep.AuthStyle = oauth2.AuthStyleInParams

	return ep
}

// AuthCodeURL returns the consent URL a user visits to bind an account.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for the account's first grant.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*Grant, error) {
	a.logger.Info("exchanging authorization code for token")

	tok, err := a.cfg.Exchange(a.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("graph: token exchange failed: %w", err)
	}

	return grantFromToken(tok, ""), nil
}

// RefreshAccessToken redeems refreshToken for a new access token. The
// endpoint may rotate the refresh token; when it does not return one the
// old token stays valid and is carried over.
func (a *Authenticator) RefreshAccessToken(ctx context.Context, refreshToken string) (*Grant, error) {
	a.logger.Info("refreshing access token")

	// A token with only a refresh token is invalid, so the source always
	// goes to the endpoint.
	src := a.cfg.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		a.logger.Warn("access token refresh failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("graph: refreshing access token: %w", err)
	}

	grant := grantFromToken(tok, refreshToken)

	a.logger.Info("access token refreshed",
		slog.Int64("expires_in", grant.ExpiresIn),
		slog.Bool("refresh_token_rotated", grant.RefreshToken != refreshToken),
	)

	return grant, nil
}

// clientContext makes oauth2 use the Authenticator's HTTP client.
func (a *Authenticator) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func grantFromToken(tok *oauth2.Token, previousRefresh string) *Grant {
	g := &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	}

	if g.RefreshToken == "" {
		g.RefreshToken = previousRefresh
	}

	return g
}

// expiresIn reads the raw expires_in field of the token response. The oauth2
// library only exposes the derived Expiry, which is relative to its own clock.
func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
