package config

// Provider defines the live rate provider configuration
type Provider struct {
	// The provider name (frankfurter | cbe)
	Name string `toml:"name"`

	// The provider endpoint URL override, if any
	URL string `toml:"url"`

	// The per-attempt network timeout,
	// as a Go duration string (ex. "10s")
	AttemptTimeout string `toml:"attempt_timeout"`

	// How many times a transient failure is retried.
	// 0 uses the source default
	MaxRetries int `toml:"max_retries"`
}

// DefaultProviderConfig returns the default provider configuration
func DefaultProviderConfig() *Provider {
	return &Provider{
		Name: "frankfurter",
	}
}
