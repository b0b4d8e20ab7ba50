package auth

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"valour-site/internal/config"
)

// Authenticator signs admins in through an external OIDC provider. It only
// proves who the visitor is; the matching admin account decides access.
type Authenticator struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// Claims are the ID token claims used to match an admin account.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// NewAuthenticator discovers the provider. Without a configured redirect URL
// the callback is baseURL + "/auth/callback".
func NewAuthenticator(ctx context.Context, cfg config.OIDCConfig, baseURL string) (*Authenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, err
	}

	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = strings.TrimRight(baseURL, "/") + "/auth/callback"
	}

	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirect,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// AuthCodeURL is the provider URL the visitor is sent to.
func (a *Authenticator) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return a.oauth.AuthCodeURL(state, opts...)
}

// VerifyCode exchanges an authorization code and returns the verified claims
// with the email lower-cased, as admin accounts store it.
func (a *Authenticator) VerifyCode(ctx context.Context, code string) (*Claims, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}
	claims.Email = normalizeEmail(claims.Email)
	return &claims, nil
}
