/*
Package config loads server configuration from the environment.

PURPOSE:
  One struct, parsed once at startup, validated before anything opens a
  database or binds a port. Every tunable has a sane default except the
  token signing key, which must be provided.

USAGE:
  cfg, err := config.Load()
  if err != nil {
      log.Fatal(err)
  }

SEE ALSO:
  - cmd/server/main.go: The only consumer
  - factory: Parses the town configuration file named here
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings.
type Config struct {
	// Port the HTTP API listens on.
	Port int `env:"TOWNSHIP_PORT" envDefault:"8080"`

	// DBPath is the SQLite database file. ":memory:" works for demos.
	DBPath string `env:"TOWNSHIP_DB_PATH" envDefault:"township.db"`

	// TokenKey signs capability tokens. Required; no default on purpose.
	TokenKey string `env:"TOWNSHIP_TOKEN_KEY"`

	// TokenTTL is how long an elevation grant stays valid.
	TokenTTL time.Duration `env:"TOWNSHIP_TOKEN_TTL" envDefault:"12h"`

	// TownConfigPath points at the town JSON (scopes, menu, prize table).
	// Empty means the built-in preset.
	TownConfigPath string `env:"TOWNSHIP_TOWN_CONFIG"`

	// HungerDecayInterval is how often every actor loses one hunger point.
	HungerDecayInterval time.Duration `env:"TOWNSHIP_HUNGER_DECAY_INTERVAL" envDefault:"30m"`

	// HealthDecayInterval is how often starving actors lose one health point.
	HealthDecayInterval time.Duration `env:"TOWNSHIP_HEALTH_DECAY_INTERVAL" envDefault:"3m"`

	// DecayEnabled turns the stat decay scheduler on or off.
	DecayEnabled bool `env:"TOWNSHIP_DECAY_ENABLED" envDefault:"true"`
}

// Load parses and validates configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("TOWNSHIP_PORT must be in 1..65535, got %d", cfg.Port)
	}
	if cfg.TokenKey == "" {
		return Config{}, fmt.Errorf("TOWNSHIP_TOKEN_KEY is required")
	}
	if len(cfg.TokenKey) < 16 {
		return Config{}, fmt.Errorf("TOWNSHIP_TOKEN_KEY must be at least 16 bytes")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOWNSHIP_TOKEN_TTL must be positive")
	}
	if cfg.HungerDecayInterval <= 0 || cfg.HealthDecayInterval <= 0 {
		return Config{}, fmt.Errorf("decay intervals must be positive")
	}

	return cfg, nil
}
