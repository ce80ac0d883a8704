package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyfx/penny/resolver"
)

func TestConfig_ValidateConfig(t *testing.T) {
	t.Parallel()

	t.Run("invalid listen address", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.ListenAddress = "rando-address" // doesn't follow the format

		assert.ErrorIs(t, ValidateConfig(cfg), ErrInvalidListenAddress)
	})

	t.Run("invalid default strategy", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.DefaultStrategy = "sometimes"

		assert.ErrorIs(t, ValidateConfig(cfg), resolver.ErrInvalidStrategy)
	})

	t.Run("invalid provider timeout", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.ProviderConfig.AttemptTimeout = "soon"

		assert.ErrorIs(t, ValidateConfig(cfg), ErrInvalidDuration)
	})

	t.Run("invalid refresh interval", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.RefreshConfig.Interval = "hourly"

		assert.ErrorIs(t, ValidateConfig(cfg), ErrInvalidDuration)
	})

	t.Run("valid configuration", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.DefaultStrategy = "cached"
		cfg.ProviderConfig.AttemptTimeout = "10s"
		cfg.RefreshConfig.Interval = "30m"

		assert.NoError(t, ValidateConfig(cfg))
	})
}

func TestConfig_Read(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Read(filepath.Join(t.TempDir(), "missing.toml"))

		assert.Error(t, err)
	})

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		content := `
listen_address = "127.0.0.1:9000"
default_strategy = "cached"
allowed_currencies = ["USD", "EGP"]

[cors_config]
allowed_origins = ["https://example.com"]
allowed_methods = ["GET"]
allowed_headers = ["Content-Type"]

[provider_config]
name = "cbe"
url = "https://rates.example.com"
attempt_timeout = "10s"
max_retries = 5

[cache_config]
path = "/var/lib/penny/rates.cache"
key_env = "PENNY_CACHE_KEY"
max_records = 50
retention_days = 14

[refresh_config]
pairs = ["USD/EGP", "EUR/EGP"]
interval = "30m"
`

		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Read(path)

		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
		assert.Equal(t, "cached", cfg.DefaultStrategy)
		assert.Equal(t, []string{"USD", "EGP"}, cfg.AllowedCurrencies)

		require.NotNil(t, cfg.CORSConfig)
		assert.Equal(t, []string{"https://example.com"}, cfg.CORSConfig.AllowedOrigins)

		require.NotNil(t, cfg.ProviderConfig)
		assert.Equal(t, "cbe", cfg.ProviderConfig.Name)
		assert.Equal(t, "https://rates.example.com", cfg.ProviderConfig.URL)
		assert.Equal(t, "10s", cfg.ProviderConfig.AttemptTimeout)
		assert.Equal(t, 5, cfg.ProviderConfig.MaxRetries)

		require.NotNil(t, cfg.CacheConfig)
		assert.Equal(t, "/var/lib/penny/rates.cache", cfg.CacheConfig.Path)
		assert.Equal(t, "PENNY_CACHE_KEY", cfg.CacheConfig.KeyEnv)
		assert.Equal(t, 50, cfg.CacheConfig.MaxRecords)
		assert.Equal(t, 14, cfg.CacheConfig.RetentionDays)

		require.NotNil(t, cfg.RefreshConfig)
		assert.Equal(t, []string{"USD/EGP", "EUR/EGP"}, cfg.RefreshConfig.Pairs)
		assert.Equal(t, "30m", cfg.RefreshConfig.Interval)
	})
}
