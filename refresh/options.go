package refresh

import (
	"log/slog"
	"time"

	"github.com/pennyfx/penny/archive"
)

type Option func(s *Scheduler)

// WithLogger specifies the logger for the scheduler
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithQueryInterval specifies query interval for the scheduler's jobs.
// Defaults to 1s.
// This should only be modified if the registered jobs
// have sparse runs (once every hour / 24hrs)
func WithQueryInterval(q time.Duration) Option {
	return func(s *Scheduler) {
		s.queryInterval = q
	}
}

// WithRetryDelay specifies how soon a failed refresh is retried.
// Defaults to 10s
func WithRetryDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.retryDelay = d
	}
}

// WithArchive specifies the long-term history archive for
// refreshed rates
func WithArchive(a archive.Archive) Option {
	return func(s *Scheduler) {
		s.archive = a
	}
}
