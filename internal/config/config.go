package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Hosted backend
	BackendURL  string        `env:"SUPABASE_URL"`
	AnonKey     string        `env:"SUPABASE_ANON_KEY"`
	HTTPTimeout time.Duration `env:"BM_HTTP_TIMEOUT" envDefault:"10s"`

	// Session & sign-in
	SessionFile  string `env:"BM_SESSION_FILE"`
	CallbackAddr string `env:"BM_CALLBACK_ADDR" envDefault:"127.0.0.1:54321"`

	// Snapshot cache (disabled when RedisAddr is empty)
	RedisAddr           string        `env:"REDIS_ADDR"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`
	RedisConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"5s"`

	// Logging
	LogLevel  string `env:"BM_LOG_LEVEL" envDefault:"info"`
	LogFile   string `env:"BM_LOG_FILE"`
	PrettyLog bool   `env:"BM_PRETTY_LOG" envDefault:"true"`

	// Tracing
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"smart-bookmark"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; real environment variables win over it.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile()
	}
	return cfg, nil
}

// Validate checks the settings every backend-facing command needs.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("SUPABASE_URL must start with http:// or https://, got %q", c.BackendURL)
	}
	if c.AnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("BM_HTTP_TIMEOUT must be > 0, got %v", c.HTTPTimeout)
	}
	return nil
}

// CacheEnabled reports whether a Redis snapshot cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "smart-bookmark", "session.json")
}
