package resolver

import (
	"context"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

type (
	fetchDelegate  func(context.Context, currency.Code, currency.Code) (*rate.Record, error)
	recordDelegate func(context.Context, *rate.Record) error
	latestDelegate func(context.Context, currency.Code, currency.Code) (*rate.Record, error)
)

type mockSource struct {
	fetchFn fetchDelegate
}

func (m *mockSource) Fetch(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, base, quote)
	}

	return nil, nil
}

type mockCache struct {
	recordFn recordDelegate
	latestFn latestDelegate
}

func (m *mockCache) Record(ctx context.Context, rec *rate.Record) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, rec)
	}

	return nil
}

func (m *mockCache) Latest(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, base, quote)
	}

	return nil, nil
}
