// Package server provides the runtime configuration for the SecureRoom
// server, loaded from the environment with sanitized defaults.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings. Defaults match a permissive development
// deployment: any origin may connect and the server listens on :3001.
type Config struct {
	Addr            string        `env:"PORT" envDefault:":3001"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// NewConfig returns a Config populated with default values.
func NewConfig() Config {
	cfg := Config{
		Addr:            ":3001",
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  4096,
		ShutdownTimeout: 10 * time.Second,
	}
	return cfg.sanitize()
}

// NewConfigFromEnv loads the configuration from environment variables,
// falling back to defaults for anything unset.
func NewConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.sanitize(), nil
}

// sanitize clamps invalid values back to defaults and normalizes the listen
// address so a bare port number works.
func (cfg Config) sanitize() Config {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		cfg.Addr = ":3001"
	}
	if !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return cfg
}
