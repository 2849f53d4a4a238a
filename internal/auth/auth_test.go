package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, access string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"token_type":    "Bearer",
			"refresh_token": "refresh",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/auth",
			TokenURL: tokenURL,
		},
		Scopes: scopes,
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	creds := `{"installed":{"client_id":"cid","client_secret":"csecret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(path, []byte(creds), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.ClientID != "cid" || len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "calendar.readonly") {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	want := &oauth2.Token{AccessToken: "abc", RefreshToken: "r", Expiry: time.Date(2026, 1, 4, 10, 0, 0, 0, time.UTC)}
	if err := saveToken(path, want); err != nil {
		t.Fatalf("saveToken error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode = %v", info.Mode().Perm())
	}
	got, err := tokenFromFile(path)
	if err != nil {
		t.Fatalf("tokenFromFile error: %v", err)
	}
	if got.AccessToken != "abc" || got.RefreshToken != "r" || !got.Expiry.Equal(want.Expiry) {
		t.Fatalf("unexpected token %+v", got)
	}
}

type staticSource struct {
	tok *oauth2.Token
	err error
}

func (s staticSource) Token() (*oauth2.Token, error) {
	return s.tok, s.err
}

func TestSavingSourceWritesOnlyNewTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	src := &savingSource{base: staticSource{tok: &oauth2.Token{AccessToken: "old"}}, path: path, last: "old"}
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unchanged token should not be written, stat err %v", err)
	}

	src.base = staticSource{tok: &oauth2.Token{AccessToken: "new"}}
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token error: %v", err)
	}
	saved, err := tokenFromFile(path)
	if err != nil || saved.AccessToken != "new" {
		t.Fatalf("expected refreshed token on disk, got %+v, %v", saved, err)
	}

	src.base = staticSource{err: errors.New("boom")}
	if _, err := src.Token(); err == nil {
		t.Fatalf("expected source error")
	}
}

func TestLoopbackHandler(t *testing.T) {
	codeCh := make(chan string, 1)
	h := loopbackHandler("expected", codeCh)

	cases := []struct {
		name   string
		target string
		status int
	}{
		{name: "wrong path", target: "/other", status: http.StatusNotFound},
		{name: "bad state", target: "/callback?state=nope&code=c", status: http.StatusBadRequest},
		{name: "missing code", target: "/callback?state=expected", status: http.StatusBadRequest},
		{name: "ok", target: "/callback?state=expected&code=the-code", status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
	select {
	case code := <-codeCh:
		if code != "the-code" {
			t.Fatalf("unexpected code %q", code)
		}
	default:
		t.Fatalf("expected code to be delivered")
	}
}

func TestWebFlowAuthURL(t *testing.T) {
	flow := NewWebFlow(testConfig("https://accounts.example.com/token"), "http://localhost:8080/oauth2callback")
	raw := flow.AuthURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-123" || q.Get("access_type") != "offline" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("redirect_uri") != "http://localhost:8080/oauth2callback" {
		t.Fatalf("unexpected redirect %q", q.Get("redirect_uri"))
	}
}

func TestWebFlowExchange(t *testing.T) {
	srv := tokenServer(t, "fresh")
	flow := NewWebFlow(testConfig(srv.URL), "http://localhost/oauth2callback")

	if _, err := flow.Exchange(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty code")
	}
	tok, err := flow.Exchange(context.Background(), "code")
	if err != nil {
		t.Fatalf("Exchange error: %v", err)
	}
	if tok.AccessToken != "fresh" || tok.RefreshToken != "refresh" {
		t.Fatalf("unexpected token %+v", tok)
	}
}

func TestWebFlowRefresh(t *testing.T) {
	srv := tokenServer(t, "refreshed")
	flow := NewWebFlow(testConfig(srv.URL), "http://localhost/oauth2callback")
	ctx := context.Background()

	if _, err := flow.Refresh(ctx, nil); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	valid := &oauth2.Token{AccessToken: "still-good", Expiry: time.Now().Add(time.Hour)}
	got, err := flow.Refresh(ctx, valid)
	if err != nil || got != valid {
		t.Fatalf("valid token should be returned as is, got %+v, %v", got, err)
	}

	stale := &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}
	if _, err := flow.Refresh(ctx, stale); err == nil {
		t.Fatalf("expected error without refresh token")
	}

	stale.RefreshToken = "refresh"
	got, err = flow.Refresh(ctx, stale)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if got.AccessToken != "refreshed" {
		t.Fatalf("unexpected refreshed token %+v", got)
	}
}
