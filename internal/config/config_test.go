package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected default read timeout 30s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Session.Store != "file" {
		t.Errorf("expected default session store file, got %q", cfg.Session.Store)
	}
	if cfg.RateLimit.LoginAttempts != 10 {
		t.Errorf("expected default login attempts 10, got %d", cfg.RateLimit.LoginAttempts)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 9090
  host: "127.0.0.1"
  read_timeout: 10s
  write_timeout: 15s
upstream:
  base_url: "https://staging.ccapconnect.org"
  timeout: 5s
session:
  store: redis
  redis_url: "redis://localhost:6379/0"
  ttl: 12h
  secret: "topsecret"
rate_limit:
  login_attempts: 5
  window: 2m
cors:
  allowed_origins: ["https://example.com"]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Upstream.BaseURL != "https://staging.ccapconnect.org" {
		t.Errorf("expected staging upstream, got %s", cfg.Upstream.BaseURL)
	}
	if cfg.Session.Store != "redis" || cfg.Session.TTL != 12*time.Hour {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("expected cors origins [https://example.com], got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with empty path should use defaults: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CCAPD_PORT", "3000")
	t.Setenv("CCAPD_HOST", "10.0.0.1")
	t.Setenv("CCAPD_UPSTREAM_URL", "https://env.ccapconnect.org")
	t.Setenv("CCAPD_SESSION_SECRET", "abc123")
	t.Setenv("CCAPD_SESSION_STORE", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "10.0.0.1" {
		t.Errorf("expected host 10.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Upstream.BaseURL != "https://env.ccapconnect.org" {
		t.Errorf("expected env upstream URL, got %s", cfg.Upstream.BaseURL)
	}
	if cfg.Session.Secret != "abc123" {
		t.Errorf("expected session secret abc123, got %s", cfg.Session.Secret)
	}
	if cfg.Session.Store != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Session.Store)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, true},
		{"empty upstream url", func(c *Config) { c.Upstream.BaseURL = "" }, true},
		{"zero upstream timeout", func(c *Config) { c.Upstream.Timeout = 0 }, true},
		{"unknown session store", func(c *Config) { c.Session.Store = "etcd" }, true},
		{"file store without dir", func(c *Config) { c.Session.Dir = "" }, true},
		{"redis store without url", func(c *Config) { c.Session.Store = "redis" }, true},
		{"memory store needs nothing", func(c *Config) { c.Session.Store = "memory"; c.Session.Dir = "" }, false},
		{"zero session ttl", func(c *Config) { c.Session.TTL = 0 }, true},
		{"empty session secret", func(c *Config) { c.Session.Secret = "" }, true},
		{"zero login attempts", func(c *Config) { c.RateLimit.LoginAttempts = 0 }, true},
		{"zero rate window", func(c *Config) { c.RateLimit.Window = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.Session.Secret = "test-secret"
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := defaults()
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("expected 0.0.0.0:8080, got %s", cfg.Addr())
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_CCAPD_VAR", "hello")
	result := expandEnvVars("value: ${TEST_CCAPD_VAR}")
	if result != "value: hello" {
		t.Errorf("expected 'value: hello', got %s", result)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}
