package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/currency"
)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Money is an immutable monetary value: an exact decimal amount
// tied to a single currency
type Money struct {
	amount decimal.Decimal
	code   currency.Code
}

// New creates a monetary value in the given currency
func New(amount decimal.Decimal, code currency.Code) (Money, error) {
	if _, err := currency.Lookup(code); err != nil {
		return Money{}, err
	}

	return Money{
		amount: amount,
		code:   code,
	}, nil
}

// Parse creates a monetary value from raw amount and currency code strings
func Parse(amount, code string) (Money, error) {
	parsedCode, err := currency.Parse(code)
	if err != nil {
		return Money{}, err
	}

	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	return Money{
		amount: d,
		code:   parsedCode,
	}, nil
}

// Zero creates a zero value in the given currency
func Zero(code currency.Code) (Money, error) {
	return New(decimal.Zero, code)
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) Currency() currency.Code {
	return m.code
}

// Add sums two values of the same currency
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}

	return Money{amount: m.amount.Add(other.amount), code: m.code}, nil
}

// Sub subtracts a value of the same currency
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}

	return Money{amount: m.amount.Sub(other.amount), code: m.code}, nil
}

// Mul scales the value by the given factor
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), code: m.code}
}

// Div divides the value by the given divisor
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, ErrDivisionByZero
	}

	return Money{amount: m.amount.Div(divisor), code: m.code}, nil
}

func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg(), code: m.code}
}

func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), code: m.code}
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Cmp compares two values of the same currency:
// -1 if m < other, 0 if equal, 1 if m > other
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}

	return m.amount.Cmp(other.amount), nil
}

// Equal checks value and currency equality
func (m Money) Equal(other Money) bool {
	return m.code == other.code && m.amount.Equal(other.amount)
}

// Round rounds the amount to the currency's minor-unit precision,
// half-up at the boundary
func (m Money) Round() Money {
	info, err := currency.Lookup(m.code)
	if err != nil {
		// Unknown codes cannot be constructed through New / Parse
		return m
	}

	places := currency.DecimalPlaces(info.MinorUnit)

	return Money{amount: m.amount.Round(places), code: m.code}
}

// String renders the value as "<CODE> <amount>"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.code, m.amount)
}

// Format renders the value with thousands grouping,
// at the currency's minor-unit precision
func (m Money) Format() string {
	var places int32

	if info, err := currency.Lookup(m.code); err == nil {
		places = currency.DecimalPlaces(info.MinorUnit)
	}

	var (
		s        = m.amount.StringFixed(places)
		negative = strings.HasPrefix(s, "-")
	)

	if negative {
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder

	if negative {
		b.WriteByte('-')
	}

	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}

		b.WriteRune(r)
	}

	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}

	return fmt.Sprintf("%s %s", b.String(), m.code)
}

func (m Money) sameCurrency(other Money) error {
	if m.code != other.code {
		return fmt.Errorf(
			"%w: %s vs %s",
			ErrCurrencyMismatch,
			m.code,
			other.code,
		)
	}

	return nil
}
