package server

import (
	"context"
	"time"

	"github.com/pennyfx/penny/convert"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/money"
	"github.com/pennyfx/penny/rate"
	"github.com/pennyfx/penny/resolver"
)

type (
	resolveDelegate func(
		context.Context,
		currency.Code,
		currency.Code,
		resolver.Strategy,
	) (*rate.Record, error)

	convertDelegate func(
		context.Context,
		money.Money,
		currency.Code,
		resolver.Strategy,
	) (*convert.Result, error)

	countDelegate func(context.Context) (int, error)
	pruneDelegate func(context.Context, time.Time) (int, error)
	clearDelegate func(context.Context) error
)

type mockResolver struct {
	resolveFn resolveDelegate
}

func (m *mockResolver) Resolve(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
	strategy resolver.Strategy,
) (*rate.Record, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, base, quote, strategy)
	}

	return nil, nil
}

type mockConverter struct {
	convertFn convertDelegate
}

func (m *mockConverter) Convert(
	ctx context.Context,
	mon money.Money,
	target currency.Code,
	strategy resolver.Strategy,
) (*convert.Result, error) {
	if m.convertFn != nil {
		return m.convertFn(ctx, mon, target, strategy)
	}

	return nil, nil
}

type mockCache struct {
	recordCountFn countDelegate
	pairCountFn   countDelegate
	pruneFn       pruneDelegate
	clearFn       clearDelegate
}

func (m *mockCache) RecordCount(ctx context.Context) (int, error) {
	if m.recordCountFn != nil {
		return m.recordCountFn(ctx)
	}

	return 0, nil
}

func (m *mockCache) PairCount(ctx context.Context) (int, error) {
	if m.pairCountFn != nil {
		return m.pairCountFn(ctx)
	}

	return 0, nil
}

func (m *mockCache) Prune(ctx context.Context, now time.Time) (int, error) {
	if m.pruneFn != nil {
		return m.pruneFn(ctx, now)
	}

	return 0, nil
}

func (m *mockCache) Clear(ctx context.Context) error {
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}

	return nil
}
