package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Zero(t, cfg.LobbyInterval)
	assert.False(t, cfg.Debug)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PARTYHUB_HTTP_ADDR", ":9999")
	t.Setenv("PARTYHUB_STORE_BACKEND", "badger")
	t.Setenv("PARTYHUB_BADGER_DIR", "/tmp/hub")
	t.Setenv("PARTYHUB_CLEANUP_INTERVAL", "10s")
	t.Setenv("PARTYHUB_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, BackendBadger, cfg.StoreBackend)
	assert.Equal(t, "/tmp/hub", cfg.BadgerDir)
	assert.Equal(t, 10*time.Second, cfg.CleanupInterval)
	assert.True(t, cfg.Debug)
}

func TestValidate(t *testing.T) {
	t.Run("postgres requires a DSN", func(t *testing.T) {
		cfg := Config{StoreBackend: BackendPostgres, CleanupInterval: time.Second}
		assert.Error(t, cfg.Validate())

		cfg.PostgresDSN = "postgres://localhost/partyhub?sslmode=disable"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := Config{StoreBackend: "redis", CleanupInterval: time.Second}
		assert.Error(t, cfg.Validate())
	})

	t.Run("cleanup interval must be positive", func(t *testing.T) {
		cfg := Config{StoreBackend: BackendMemory}
		assert.Error(t, cfg.Validate())

		cfg.CleanupInterval = time.Second
		assert.NoError(t, cfg.Validate())
	})
}
