package rate

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/currency"
)

var ErrInvalidRate = errors.New("invalid rate")

// Origin marks how a rate observation was obtained
type Origin string

const (
	OriginLive  Origin = "LIVE"
	OriginCache Origin = "CACHE"
)

func (o Origin) String() string {
	return string(o)
}

// Pair is an ordered currency pair key
type Pair struct {
	Base  currency.Code `json:"base"`
	Quote currency.Code `json:"quote"`
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

// Record is a single immutable exchange rate observation
type Record struct {
	Base  currency.Code   `json:"base"`
	Quote currency.Code   `json:"quote"`
	Rate  decimal.Decimal `json:"rate"`

	// ObservedAt is kept at calendar-day granularity, UTC
	ObservedAt time.Time `json:"observed_at"`

	Origin Origin `json:"origin"`
}

// Pair returns the ordered pair key for the record
func (r *Record) Pair() Pair {
	return Pair{
		Base:  r.Base,
		Quote: r.Quote,
	}
}

// Validate checks the record invariants
func (r *Record) Validate() error {
	if r.Base == "" || r.Quote == "" {
		return fmt.Errorf("%w: missing currency pair", ErrInvalidRate)
	}

	if !r.Rate.IsPositive() {
		return fmt.Errorf(
			"%w: rate must be strictly positive, got %s",
			ErrInvalidRate,
			r.Rate,
		)
	}

	return nil
}

// Day truncates the given time to calendar-day granularity, in UTC
func Day(t time.Time) time.Time {
	u := t.UTC()

	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
