package source

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/currency"
)

type (
	nameDelegate      func() string
	fetchRateDelegate func(context.Context, currency.Code, currency.Code) (decimal.Decimal, error)
)

type mockProvider struct {
	nameFn      nameDelegate
	fetchRateFn fetchRateDelegate
}

func (m *mockProvider) Name() string {
	if m.nameFn != nil {
		return m.nameFn()
	}

	return "mock"
}

func (m *mockProvider) FetchRate(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (decimal.Decimal, error) {
	if m.fetchRateFn != nil {
		return m.fetchRateFn(ctx, base, quote)
	}

	return decimal.Zero, nil
}
