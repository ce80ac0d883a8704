package config

// Cache defines the encrypted rate cache configuration
type Cache struct {
	// The cache file location. Empty selects the
	// platform cache directory
	Path string `toml:"path"`

	// The environment variable holding the hex-encoded
	// encryption key
	KeyEnv string `toml:"key_env"`

	// The per-pair history bound.
	// 0 uses the cache default
	MaxRecords int `toml:"max_records"`

	// The retention window, in days.
	// 0 uses the cache default
	RetentionDays int `toml:"retention_days"`
}

// DefaultCacheConfig returns the default cache configuration
func DefaultCacheConfig() *Cache {
	return &Cache{}
}
