package config

// Refresh defines the background refresh configuration
type Refresh struct {
	// The BASE/QUOTE pairs kept refreshed
	Pairs []string `toml:"pairs"`

	// The refresh interval, as a Go duration string (ex. "1h")
	Interval string `toml:"interval"`
}

// DefaultRefreshConfig returns the default refresh configuration
func DefaultRefreshConfig() *Refresh {
	return &Refresh{
		Pairs: []string{"USD/EGP"},
	}
}
