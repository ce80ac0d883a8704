package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/money"
	"github.com/pennyfx/penny/rate"
	"github.com/pennyfx/penny/resolver"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// RateResolver obtains a rate for a currency pair under a strategy
type RateResolver interface {
	// Resolve obtains a rate for the given pair
	Resolve(
		ctx context.Context,
		base currency.Code,
		quote currency.Code,
		strategy resolver.Strategy,
	) (*rate.Record, error)
}

// Result is a completed conversion: the converted value plus the
// rate that produced it
type Result struct {
	// Money is the converted value, rounded to the target
	// currency's minor unit
	Money money.Money

	// Rate is the record the conversion was priced against
	Rate *rate.Record
}

// Engine converts monetary values between currencies using
// resolved exchange rates
type Engine struct {
	resolver RateResolver
	allowed  currency.Set
	logger   *slog.Logger
}

// New creates a new conversion engine
func New(resolver RateResolver, opts ...Option) *Engine {
	e := &Engine{
		resolver: resolver,
		logger:   noopLogger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Convert exchanges the given value into the target currency.
// Both currencies are validated before any rate is resolved,
// and the converted amount is rounded to the target currency's
// minor-unit precision
func (e *Engine) Convert(
	ctx context.Context,
	m money.Money,
	target currency.Code,
	strategy resolver.Strategy,
) (*Result, error) {
	if err := e.check(m.Currency()); err != nil {
		return nil, err
	}

	targetInfo, err := currency.Lookup(target)
	if err != nil {
		return nil, err
	}

	if !e.allowed.Allows(target) {
		return nil, fmt.Errorf("%w: %q", currency.ErrNotAllowed, target)
	}

	rec, err := e.resolver.Resolve(ctx, m.Currency(), target, strategy)
	if err != nil {
		return nil, err
	}

	var (
		places    = currency.DecimalPlaces(targetInfo.MinorUnit)
		converted = m.Amount().Mul(rec.Rate).Round(places)
	)

	out, err := money.New(converted, target)
	if err != nil {
		return nil, err
	}

	e.logger.Debug(
		"converted",
		"from", m.Currency(),
		"to", target,
		"rate", rec.Rate.String(),
		"origin", rec.Origin,
	)

	return &Result{
		Money: out,
		Rate:  rec,
	}, nil
}

func (e *Engine) check(code currency.Code) error {
	if _, err := currency.Lookup(code); err != nil {
		return err
	}

	if !e.allowed.Allows(code) {
		return fmt.Errorf("%w: %q", currency.ErrNotAllowed, code)
	}

	return nil
}
