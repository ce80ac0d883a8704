package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

var ErrInvalidStrategy = errors.New("invalid strategy")

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Strategy governs whether a rate lookup may use the network,
// the cache, or both with fallback
type Strategy string

const (
	// StrategyLive uses the network only; no fallback
	StrategyLive Strategy = "live"

	// StrategyCached uses the cache only; never touches the network
	StrategyCached Strategy = "cached"

	// StrategyAuto tries the network first and falls back to the cache
	StrategyAuto Strategy = "auto"
)

func (s Strategy) String() string {
	return string(s)
}

// ParseStrategy validates a raw strategy value
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(raw) {
	case StrategyLive, StrategyCached, StrategyAuto:
		return Strategy(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, raw)
	}
}

// RateSource fetches a live rate over the network
type RateSource interface {
	// Fetch fetches the current rate for the given pair
	Fetch(ctx context.Context, base, quote currency.Code) (*rate.Record, error)
}

// RateCache stores and recalls observed rates
type RateCache interface {
	// Record admits a new observation
	Record(ctx context.Context, rec *rate.Record) error

	// Latest returns the most recent usable observation for the pair
	Latest(ctx context.Context, base, quote currency.Code) (*rate.Record, error)
}

// Resolver selects between the live source and the cache
// according to the requested strategy
type Resolver struct {
	source RateSource
	cache  RateCache
	logger *slog.Logger

	now func() time.Time
}

// New creates a new rate resolver
func New(source RateSource, cache RateCache, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		cache:  cache,
		logger: noopLogger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve obtains a rate for the given pair under the given strategy
func (r *Resolver) Resolve(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
	strategy Strategy,
) (*rate.Record, error) {
	// A pair with itself is a pure identity, not an observation.
	// It bypasses both the network and the cache, and is never recorded
	if base == quote {
		return &rate.Record{
			Base:       base,
			Quote:      quote,
			Rate:       decimal.NewFromInt(1),
			ObservedAt: rate.Day(r.now()),
			Origin:     rate.OriginLive,
		}, nil
	}

	switch strategy {
	case StrategyLive:
		return r.resolveLive(ctx, base, quote)
	case StrategyCached:
		return r.cache.Latest(ctx, base, quote)
	case StrategyAuto:
		return r.resolveAuto(ctx, base, quote)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
}

func (r *Resolver) resolveLive(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	rec, err := r.source.Fetch(ctx, base, quote)
	if err != nil {
		return nil, err
	}

	r.recordObservation(ctx, rec)

	return rec, nil
}

func (r *Resolver) resolveAuto(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	rec, fetchErr := r.source.Fetch(ctx, base, quote)
	if fetchErr == nil {
		r.recordObservation(ctx, rec)

		return rec, nil
	}

	r.logger.Debug(
		"live fetch failed, falling back to cache",
		"base", base,
		"quote", quote,
		"err", fetchErr,
	)

	cached, cacheErr := r.cache.Latest(ctx, base, quote)
	if cacheErr != nil {
		// The network failure is the actionable one for the caller
		return nil, fetchErr
	}

	return cached, nil
}

// recordObservation writes a successful live fetch back into the cache.
// A failed write degrades durability, not the resolved rate
func (r *Resolver) recordObservation(ctx context.Context, rec *rate.Record) {
	if err := r.cache.Record(ctx, rec); err != nil {
		r.logger.Warn(
			"unable to record rate observation",
			"base", rec.Base,
			"quote", rec.Quote,
			"err", err,
		)
	}
}
