package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

const appDir = "tictactoe"

// Config is shared by the client CLI and the reference server. Every field
// is read from a TTT_ prefixed environment variable.
type Config struct {
	Env   string `env:"TTT_ENV" envDefault:"development"`
	Debug bool   `env:"TTT_DEBUG"`

	BaseURL        string        `env:"TTT_BASE_URL" envDefault:"http://localhost:8080"`
	HTTPTimeout    time.Duration `env:"TTT_HTTP_TIMEOUT" envDefault:"15s"`
	EngineDelayMin time.Duration `env:"TTT_ENGINE_DELAY_MIN" envDefault:"200ms"`
	EngineDelayMax time.Duration `env:"TTT_ENGINE_DELAY_MAX" envDefault:"1000ms"`

	CredentialBackend string        `env:"TTT_CREDENTIAL_BACKEND" envDefault:"file"`
	CredentialPath    string        `env:"TTT_CREDENTIAL_PATH"`
	CredentialKey     string        `env:"TTT_CREDENTIAL_KEY"`
	CredentialTTL     time.Duration `env:"TTT_CREDENTIAL_TTL" envDefault:"0s"`
	CachePath         string        `env:"TTT_CACHE_PATH"`

	RedisURL  string `env:"TTT_REDIS_URL" envDefault:"localhost:6379"`
	RedisPass string `env:"TTT_REDIS_PASSWORD"`
	RedisDB   int    `env:"TTT_REDIS_DB" envDefault:"0"`

	Port        string        `env:"TTT_PORT" envDefault:"8080"`
	ServerStore string        `env:"TTT_SERVER_STORE" envDefault:"memory"`
	JWTSecret   string        `env:"TTT_JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL    time.Duration `env:"TTT_TOKEN_TTL" envDefault:"24h"`

	OTelEndpoint string `env:"TTT_OTEL_ENDPOINT"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.EngineDelayMin < 0 || c.EngineDelayMax < c.EngineDelayMin {
		return fmt.Errorf("invalid engine delay range %s..%s", c.EngineDelayMin, c.EngineDelayMax)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	switch c.CredentialBackend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown credential backend %q", c.CredentialBackend)
	}
	switch c.ServerStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown server store %q", c.ServerStore)
	}
	if c.Env == "production" && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("TTT_JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) fillPaths() error {
	if c.CredentialPath != "" && c.CachePath != "" {
		return nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	dir = filepath.Join(dir, appDir)
	if c.CredentialPath == "" {
		c.CredentialPath = filepath.Join(dir, "credentials.json")
	}
	if c.CachePath == "" {
		c.CachePath = filepath.Join(dir, "sessions.db")
	}
	return nil
}
