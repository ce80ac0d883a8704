package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/pennyfx/penny/resolver"
)

const DefaultListenAddress = "0.0.0.0:8545"

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrInvalidDuration      = errors.New("invalid duration")
)

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The live rate provider config, if any
	ProviderConfig *Provider `toml:"provider_config"`

	// The encrypted rate cache config, if any
	CacheConfig *Cache `toml:"cache_config"`

	// The background refresh config, if any
	RefreshConfig *Refresh `toml:"refresh_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`

	// The resolution strategy used when a request doesn't
	// name one (live | cached | auto). Empty means auto
	DefaultStrategy string `toml:"default_strategy"`

	// The currencies conversions are limited to.
	// Empty allows all known currencies
	AllowedCurrencies []string `toml:"allowed_currencies"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:  DefaultListenAddress,
		CORSConfig:     DefaultCORSConfig(),
		ProviderConfig: DefaultProviderConfig(),
		CacheConfig:    DefaultCacheConfig(),
		RefreshConfig:  DefaultRefreshConfig(),
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	// Validate the default strategy
	if config.DefaultStrategy != "" {
		if _, err := resolver.ParseStrategy(config.DefaultStrategy); err != nil {
			return err
		}
	}

	// Validate the duration values
	if p := config.ProviderConfig; p != nil && p.AttemptTimeout != "" {
		if _, err := time.ParseDuration(p.AttemptTimeout); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDuration, err)
		}
	}

	if r := config.RefreshConfig; r != nil && r.Interval != "" {
		if _, err := time.ParseDuration(r.Interval); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDuration, err)
		}
	}

	return nil
}

// Read reads the configuration from the given path
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	var cfg Config

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
