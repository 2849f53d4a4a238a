package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

var ErrNoToken = errors.New("no OAuth token")

// WebFlow is the redirect-based authorization code flow used by the web
// server. It holds no per-user state; tokens live in the caller's session.
type WebFlow struct {
	config *oauth2.Config
}

func NewWebFlow(config *oauth2.Config, redirectURL string) *WebFlow {
	cfg := *config
	cfg.RedirectURL = redirectURL
	return &WebFlow{config: &cfg}
}

// AuthURL is where the browser is sent to grant access. state must be
// checked when the provider redirects back.
func (f *WebFlow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (f *WebFlow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}
	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// Refresh returns a usable token, refreshing tok if it has expired. The
// returned token differs from tok when a refresh happened and should be
// stored back into the session.
func (f *WebFlow) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok == nil {
		return nil, ErrNoToken
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("token expired and cannot be refreshed")
	}
	fresh, err := f.config.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return fresh, nil
}

func (f *WebFlow) Client(ctx context.Context, tok *oauth2.Token) *http.Client {
	return f.config.Client(ctx, tok)
}
