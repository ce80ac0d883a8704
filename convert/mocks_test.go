package convert

import (
	"context"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
	"github.com/pennyfx/penny/resolver"
)

type resolveDelegate func(
	context.Context,
	currency.Code,
	currency.Code,
	resolver.Strategy,
) (*rate.Record, error)

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
