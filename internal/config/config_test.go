package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"meetme/internal/ics"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetme", "config.json")
	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if again.WakingStart != "07:00" || again.WakingEnd != "21:00" || again.SessionBackend != BackendMemory {
		t.Fatalf("unexpected reloaded config %#v", again)
	}
}

func TestLoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
  "calendars": [" primary ", "", "primary", "work@example.com"],
  "session_backend": "REDIS",
  "base_url": "https://meet.example.com/",
  "ics_feeds": [
    {"id": "team", "url": "https://example.com/team.ics"},
    {"id": "team", "url": "https://example.com/dup.ics"},
    {"id": "", "url": "https://example.com/anon.ics"}
  ]
}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Calendars, []string{"primary", "work@example.com"}) {
		t.Fatalf("unexpected calendars %#v", cfg.Calendars)
	}
	if cfg.SessionBackend != BackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.SessionBackend)
	}
	if cfg.BaseURL != "https://meet.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
	want := []ics.Feed{{ID: "team", URL: "https://example.com/team.ics"}}
	if !reflect.DeepEqual(cfg.ICSFeeds, want) {
		t.Fatalf("unexpected feeds %#v", cfg.ICSFeeds)
	}
	if cfg.SessionTTL() != time.Hour {
		t.Fatalf("expected default ttl, got %v", cfg.SessionTTL())
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MEETME_LISTEN", ":9000")
	t.Setenv("MEETME_REDIS_ADDR", "redis:6379")
	t.Setenv("MEETME_SESSION_BACKEND", "redis")
	t.Setenv("MEETME_SESSION_SECRET", "s3cret")
	t.Setenv("MEETME_DEBUG", "yes")
	t.Setenv("MEETME_SESSION_TTL_MINUTES", "15")

	cfg := Default()
	ApplyEnv(cfg)
	if cfg.Listen != ":9000" || cfg.RedisAddr != "redis:6379" || cfg.SessionBackend != BackendRedis {
		t.Fatalf("env not applied: %#v", cfg)
	}
	if cfg.SessionSecret != "s3cret" || !cfg.Debug {
		t.Fatalf("secret/debug not applied: %#v", cfg)
	}
	if cfg.SessionTTL() != 15*time.Minute {
		t.Fatalf("expected 15m ttl, got %v", cfg.SessionTTL())
	}
}

func TestSaveOmitsSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.SessionSecret = "do-not-write"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "do-not-write") {
		t.Fatalf("secret leaked into config file:\n%s", data)
	}
}
