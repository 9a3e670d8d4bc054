package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the HTTP service settings.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTIssuer       string        `env:"JWT_ISSUER"`
	JournalCacheTTL time.Duration `env:"JOURNAL_CACHE_TTL" envDefault:"5m"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START" envDefault:"true"`
}

// ConfigFromEnv reads service config from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse app env: %w", err)
	}
	return cfg, nil
}
