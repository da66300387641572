// Package config loads runtime settings from QUESTFLOW_* environment
// variables. Command-line flags override what is loaded here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds the sandbox runtime settings.
type Config struct {
	SaveDir        string  `env:"QUESTFLOW_SAVE_DIR"`
	SaveDB         string  `env:"QUESTFLOW_SAVE_DB"`
	PollInterval   float64 `env:"QUESTFLOW_POLL_INTERVAL" envDefault:"0"`
	DayLength      float64 `env:"QUESTFLOW_DAY_LENGTH" envDefault:"600"`
	WaitSeconds    float64 `env:"QUESTFLOW_WAIT_SECONDS" envDefault:"10"`
	MaxSettleTicks int     `env:"QUESTFLOW_MAX_SETTLE_TICKS" envDefault:"32"`
	Trace          bool    `env:"QUESTFLOW_TRACE" envDefault:"false"`
	Plain          bool    `env:"QUESTFLOW_PLAIN" envDefault:"false"`
}

// Load parses the environment into a Config. An empty SaveDir defaults to
// ~/.questflow/saves.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.SaveDir == "" {
		home, _ := os.UserHomeDir()
		cfg.SaveDir = filepath.Join(home, ".questflow", "saves")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects settings the session cannot run with.
func (c Config) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("QUESTFLOW_POLL_INTERVAL must not be negative, got %v", c.PollInterval)
	}
	if c.DayLength <= 0 {
		return fmt.Errorf("QUESTFLOW_DAY_LENGTH must be positive, got %v", c.DayLength)
	}
	if c.WaitSeconds <= 0 {
		return fmt.Errorf("QUESTFLOW_WAIT_SECONDS must be positive, got %v", c.WaitSeconds)
	}
	if c.MaxSettleTicks <= 0 {
		return fmt.Errorf("QUESTFLOW_MAX_SETTLE_TICKS must be positive, got %d", c.MaxSettleTicks)
	}
	return nil
}
