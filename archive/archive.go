package archive

import (
	"context"
	"time"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

const (
	// DefaultLimit is the page size used when the query does not set one
	DefaultLimit int32 = 100

	// MaxLimit is the largest permitted page size
	MaxLimit int32 = 500
)

// Archive is an abstraction over long-term rate history storage
type Archive interface {
	// SaveRate persists the given rate observation
	SaveRate(context.Context, *rate.Record) error

	// LatestRate fetches the most recent observation for the pair.
	// A missing pair is not an error; it returns nil, nil
	LatestRate(context.Context, currency.Code, currency.Code) (*rate.Record, error)

	// History fetches observations for a pair within a time range,
	// newest first
	History(context.Context, *HistoryQuery) (*Page[*rate.Record], error)

	// ListPairs lists all pairs with at least one observation
	ListPairs(context.Context) ([]rate.Pair, error)
}

// HistoryQuery selects a slice of a pair's observation history
type HistoryQuery struct {
	From   time.Time     `json:"from"`
	To     time.Time     `json:"to"`
	Base   currency.Code `json:"base"`
	Quote  currency.Code `json:"quote"`
	Offset int64         `json:"offset"`
	Limit  int32         `json:"limit"`
}

// Page wraps the results for pagination
type Page[T any] struct {
	Results []T   `json:"results"`
	Total   int64 `json:"total"`
}

// ClampLimit normalizes a requested page size into the permitted range
func ClampLimit(limit int32) int32 {
	if limit <= 0 {
		return DefaultLimit
	}

	if limit > MaxLimit {
		return MaxLimit
	}

	return limit
}
