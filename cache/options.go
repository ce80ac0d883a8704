package cache

import (
	"log/slog"
	"time"
)

type Option func(c *Cache)

// WithLogger specifies the logger for the cache
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithMaxRecords specifies the per-pair history bound.
// Defaults to 30
func WithMaxRecords(maxRecords int) Option {
	return func(c *Cache) {
		if maxRecords > 0 {
			c.maxRecords = maxRecords
		}
	}
}

// WithRetentionDays specifies the retention window, in days.
// Defaults to 7
func WithRetentionDays(days int) Option {
	return func(c *Cache) {
		if days > 0 {
			c.retentionDays = days
		}
	}
}

// WithClock specifies the time source for retention checks
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}
