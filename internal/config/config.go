package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"meetme/internal/ics"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Calendars         []string   `json:"calendars"`
	WakingStart       string     `json:"waking_start"`
	WakingEnd         string     `json:"waking_end"`
	Timezone          string     `json:"timezone"`
	Listen            string     `json:"listen"`
	BaseURL           string     `json:"base_url"`
	SessionBackend    string     `json:"session_backend"`
	RedisAddr         string     `json:"redis_addr"`
	SessionTTLMinutes int        `json:"session_ttl_minutes"`
	ICSFeeds          []ics.Feed `json:"ics_feeds"`
	Debug             bool       `json:"debug"`

	// SessionSecret signs session cookies. It only comes from the
	// environment and is never written to disk.
	SessionSecret string `json:"-"`
}

func Load(path string) (*Config, error) {
	// #nosec G304 -- path is controlled by the app config location
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	normalize(&cfg)
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func Default() *Config {
	return &Config{
		Calendars:         nil,
		WakingStart:       "07:00",
		WakingEnd:         "21:00",
		Timezone:          "local",
		Listen:            "127.0.0.1:8080",
		BaseURL:           "http://localhost:8080",
		SessionBackend:    BackendMemory,
		SessionTTLMinutes: 60,
	}
}

func LoadOrCreate(path string) (*Config, error) {
	// #nosec G304 -- path is controlled by the app config location
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	normalize(&cfg)
	if err := Save(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SessionTTL is how long an idle browser session is kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// ApplyEnv overlays MEETME_* environment variables on top of the file
// values, so a deployed server can be tuned without editing the file.
func ApplyEnv(cfg *Config) {
	cfg.Listen = envString("MEETME_LISTEN", cfg.Listen)
	cfg.BaseURL = envString("MEETME_BASE_URL", cfg.BaseURL)
	cfg.SessionBackend = envString("MEETME_SESSION_BACKEND", cfg.SessionBackend)
	cfg.RedisAddr = envString("MEETME_REDIS_ADDR", cfg.RedisAddr)
	cfg.SessionSecret = envString("MEETME_SESSION_SECRET", cfg.SessionSecret)
	if v := os.Getenv("MEETME_DEBUG"); v != "" {
		cfg.Debug = isTruthy(v)
	}
	if v, err := strconv.Atoi(envString("MEETME_SESSION_TTL_MINUTES", "")); err == nil && v > 0 {
		cfg.SessionTTLMinutes = v
	}
	normalize(cfg)
}

func envString(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func normalize(cfg *Config) {
	def := Default()
	if cfg.WakingStart == "" {
		cfg.WakingStart = def.WakingStart
	}
	if cfg.WakingEnd == "" {
		cfg.WakingEnd = def.WakingEnd
	}
	if cfg.Timezone == "" {
		cfg.Timezone = def.Timezone
	}
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	if cfg.SessionBackend != BackendRedis {
		cfg.SessionBackend = BackendMemory
	}
	if cfg.SessionTTLMinutes <= 0 {
		cfg.SessionTTLMinutes = def.SessionTTLMinutes
	}

	seen := make(map[string]bool, len(cfg.Calendars))
	filtered := make([]string, 0, len(cfg.Calendars))
	for _, id := range cfg.Calendars {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		filtered = append(filtered, id)
	}
	cfg.Calendars = filtered

	feeds := make([]ics.Feed, 0, len(cfg.ICSFeeds))
	seenFeeds := map[string]bool{}
	for _, f := range cfg.ICSFeeds {
		f.ID = strings.TrimSpace(f.ID)
		f.URL = strings.TrimSpace(f.URL)
		if f.ID == "" || f.URL == "" || seenFeeds[f.ID] {
			continue
		}
		seenFeeds[f.ID] = true
		feeds = append(feeds, f)
	}
	cfg.ICSFeeds = feeds
}
