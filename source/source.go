package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/provider"
	"github.com/pennyfx/penny/rate"
)

// ErrRateUnavailable is returned when the live rate
// could not be obtained within the retry budget
var ErrRateUnavailable = errors.New("rate unavailable")

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	defaultMaxRetries     = 3
	defaultAttemptTimeout = time.Second * 10
	defaultBaseDelay      = time.Millisecond * 500
	defaultMaxDelay       = time.Second * 30

	// jitterFactor randomizes each delay by ±50%, so parallel
	// callers don't hammer the provider in lockstep
	jitterFactor = 0.5
)

// Source fetches live exchange rates from a provider,
// retrying transient failures with capped exponential backoff
type Source struct {
	provider provider.Provider
	logger   *slog.Logger

	maxRetries     uint64
	attemptTimeout time.Duration
	baseDelay      time.Duration
	maxDelay       time.Duration

	// timer drives the backoff waits; injectable for tests.
	// nil means the real system timer
	timer backoff.Timer

	now func() time.Time
}

// New creates a new rate source around the given provider
func New(p provider.Provider, opts ...Option) *Source {
	s := &Source{
		provider:       p,
		logger:         noopLogger,
		maxRetries:     defaultMaxRetries,
		attemptTimeout: defaultAttemptTimeout,
		baseDelay:      defaultBaseDelay,
		maxDelay:       defaultMaxDelay,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Fetch obtains a live rate for the given pair.
// Transient failures are retried up to the configured budget; permanent
// failures surface immediately. The returned error always wraps
// ErrRateUnavailable, with the provider classification preserved underneath
func (s *Source) Fetch(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	var fetched *rate.Record

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()

		value, err := s.provider.FetchRate(attemptCtx, base, quote)
		if err != nil {
			if errors.Is(err, provider.ErrTransient) {
				return err
			}

			// Don't waste the retry budget
			return backoff.Permanent(err)
		}

		rec := &rate.Record{
			Base:       base,
			Quote:      quote,
			Rate:       value,
			ObservedAt: rate.Day(s.now()),
			Origin:     rate.OriginLive,
		}

		if err := rec.Validate(); err != nil {
			return backoff.Permanent(err)
		}

		fetched = rec

		return nil
	}

	notify := func(err error, delay time.Duration) {
		s.logger.Debug(
			"retrying rate fetch",
			"provider", s.provider.Name(),
			"base", base,
			"quote", quote,
			"delay", delay,
			"err", err,
		)
	}

	err := backoff.RetryNotifyWithTimer(op, s.policy(ctx), notify, s.timer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}

	return fetched, nil
}

// policy builds the per-call retry policy: delays grow as
// baseDelay × 2^attempt with jitter, capped at maxDelay,
// for at most maxRetries retries
func (s *Source) policy(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()

	bo.InitialInterval = s.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = jitterFactor
	bo.MaxInterval = s.maxDelay
	bo.MaxElapsedTime = 0 // bounded by retry count, not wall time

	return backoff.WithContext(
		backoff.WithMaxRetries(bo, s.maxRetries),
		ctx,
	)
}
