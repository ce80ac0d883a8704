package env

const (
	// Prefix is the ENV variable prefix for all penny commands
	Prefix = "PENNY"

	// DBURLSuffix is the ENV variable suffix holding the
	// Postgres connection string
	DBURLSuffix = "_DB_URL"

	// CacheKeySuffix is the ENV variable suffix holding the
	// hex-encoded 32-byte cache encryption key
	CacheKeySuffix = "_CACHE_KEY"
)
