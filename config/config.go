// Package config loads runtime configuration from the environment.
// All variables carry the PARTYHUB_ prefix; a .env file is honored when
// present (loaded by main before Load runs).
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store backends selectable via PARTYHUB_STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// Config is the process configuration.
type Config struct {
	// HTTPAddr is the listen address for the REST + websocket server.
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// StoreBackend selects the room store: memory, postgres, or badger.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`

	// PostgresDSN is required when StoreBackend is postgres.
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// BadgerDir is the data directory when StoreBackend is badger.
	BadgerDir string `envconfig:"BADGER_DIR" default:"data/partyhub"`

	// CleanupInterval is the reconciliation sweep period.
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"30s"`

	// LobbyInterval enables periodic lobby pushes when > 0.
	LobbyInterval time.Duration `envconfig:"LOBBY_INTERVAL" default:"0"`

	// Debug lowers the log threshold to debug.
	Debug bool `envconfig:"DEBUG" default:"false"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("partyhub", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendBadger:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires PARTYHUB_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %s", c.CleanupInterval)
	}
	return nil
}
