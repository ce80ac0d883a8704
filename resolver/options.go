package resolver

import (
	"log/slog"
	"time"
)

type Option func(r *Resolver)

// WithLogger specifies the logger for the resolver
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithClock specifies the time source for identity rates
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}
