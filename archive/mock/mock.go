package mock

import (
	"context"

	"github.com/pennyfx/penny/archive"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

type (
	SaveRateDelegate   func(context.Context, *rate.Record) error
	LatestRateDelegate func(context.Context, currency.Code, currency.Code) (*rate.Record, error)
	HistoryDelegate    func(context.Context, *archive.HistoryQuery) (*archive.Page[*rate.Record], error)
	ListPairsDelegate  func(context.Context) ([]rate.Pair, error)
)

type Archive struct {
	SaveRateFn   SaveRateDelegate
	LatestRateFn LatestRateDelegate
	HistoryFn    HistoryDelegate
	ListPairsFn  ListPairsDelegate
}

func (m *Archive) SaveRate(ctx context.Context, rec *rate.Record) error {
	if m.SaveRateFn != nil {
		return m.SaveRateFn(ctx, rec)
	}

	return nil
}

func (m *Archive) LatestRate(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	if m.LatestRateFn != nil {
		return m.LatestRateFn(ctx, base, quote)
	}

	return nil, nil
}

func (m *Archive) History(
	ctx context.Context,
	query *archive.HistoryQuery,
) (*archive.Page[*rate.Record], error) {
	if m.HistoryFn != nil {
		return m.HistoryFn(ctx, query)
	}

	return nil, nil
}

func (m *Archive) ListPairs(ctx context.Context) ([]rate.Pair, error) {
	if m.ListPairsFn != nil {
		return m.ListPairsFn(ctx)
	}

	return nil, nil
}
