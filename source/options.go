package source

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Option func(s *Source)

// WithLogger specifies the logger for the source
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		s.logger = l
	}
}

// WithMaxRetries specifies how many times a transient
// failure is retried. Defaults to 3
func WithMaxRetries(retries uint64) Option {
	return func(s *Source) {
		s.maxRetries = retries
	}
}

// WithAttemptTimeout specifies the per-attempt network timeout
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(s *Source) {
		s.attemptTimeout = timeout
	}
}

// WithBaseDelay specifies the initial backoff delay
func WithBaseDelay(delay time.Duration) Option {
	return func(s *Source) {
		s.baseDelay = delay
	}
}

// WithMaxDelay specifies the backoff delay cap
func WithMaxDelay(delay time.Duration) Option {
	return func(s *Source) {
		s.maxDelay = delay
	}
}

// WithTimer specifies the timer driving backoff waits,
// so tests run without real sleeps
func WithTimer(t backoff.Timer) Option {
	return func(s *Source) {
		s.timer = t
	}
}

// WithClock specifies the time source for observation dates
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}
