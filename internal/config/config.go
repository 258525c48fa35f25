// Package config loads the dashboard configuration: YAML file with
// environment expansion, a .env file for local development, and CCAPD_*
// environment overrides on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// UpstreamConfig points at the externally hosted C-CAP backend API.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig selects and parameterizes the session store. Store is one
// of "memory", "file" or "redis".
type SessionConfig struct {
	Store    string        `yaml:"store"`
	Dir      string        `yaml:"dir"`       // file store only
	RedisURL string        `yaml:"redis_url"` // redis store only
	TTL      time.Duration `yaml:"ttl"`
	// Secret derives the cookie signing keys and the envelope encryption
	// key. Required: cookies cannot be signed without it.
	Secret string `yaml:"secret"`
	// SecureCookies marks the session cookie Secure; disable for plain
	// HTTP in development.
	SecureCookies bool `yaml:"secure_cookies"`
}

// RateLimitConfig throttles the anonymous auth endpoints per client
// address.
type RateLimitConfig struct {
	LoginAttempts int           `yaml:"login_attempts"`
	Window        time.Duration `yaml:"window"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"` // default: [] (same-origin only when empty; ["*"] for dev)
}

func Load(path string) (*Config, error) {
	// Pick up a local .env for development; absence is fine.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://api.ccapconnect.org",
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			Store:         "file",
			Dir:           "sessions",
			TTL:           24 * time.Hour,
			SecureCookies: true,
		},
		RateLimit: RateLimitConfig{
			LoginAttempts: 10,
			Window:        time.Minute,
		},
	}
}

func expandEnvVars(s string) string {
	return os.ExpandEnv(s)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CCAPD_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CCAPD_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CCAPD_UPSTREAM_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("CCAPD_SESSION_STORE"); v != "" {
		cfg.Session.Store = v
	}
	if v := os.Getenv("CCAPD_SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("CCAPD_REDIS_URL"); v != "" {
		cfg.Session.RedisURL = v
	}
}

// Validate checks the loaded configuration for values the server cannot
// start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}

	switch c.Session.Store {
	case "memory":
	case "file":
		if c.Session.Dir == "" {
			return fmt.Errorf("session.dir is required for the file store")
		}
	case "redis":
		if c.Session.RedisURL == "" {
			return fmt.Errorf("session.redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("session.store must be memory, file or redis, got %q", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required (set CCAPD_SESSION_SECRET)")
	}

	if c.RateLimit.LoginAttempts < 1 {
		return fmt.Errorf("rate_limit.login_attempts must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
