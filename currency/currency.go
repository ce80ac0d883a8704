package currency

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrInvalidCode     = errors.New("invalid currency code")
	ErrUnknownCurrency = errors.New("unknown currency code")
	ErrNotAllowed      = errors.New("currency not allowed")
)

// Code is an ISO-4217 alphabetic currency code
type Code string

func (c Code) String() string {
	return string(c)
}

// Info holds the metadata for a single currency
type Info struct {
	Code Code   `json:"code"`
	Name string `json:"name"`

	// MinorUnit is the divisor relating the smallest tracked unit
	// to the major unit (100 for cents-based currencies, 1 for
	// currencies with no subdivision)
	MinorUnit int64 `json:"minor_unit"`
}

// registry holds the known currency metadata, keyed by code
var registry = map[Code]Info{
	"AED": {Code: "AED", Name: "UAE Dirham", MinorUnit: 100},
	"AUD": {Code: "AUD", Name: "Australian Dollar", MinorUnit: 100},
	"BHD": {Code: "BHD", Name: "Bahraini Dinar", MinorUnit: 1000},
	"BRL": {Code: "BRL", Name: "Brazilian Real", MinorUnit: 100},
	"CAD": {Code: "CAD", Name: "Canadian Dollar", MinorUnit: 100},
	"CHF": {Code: "CHF", Name: "Swiss Franc", MinorUnit: 100},
	"CLP": {Code: "CLP", Name: "Chilean Peso", MinorUnit: 1},
	"CNY": {Code: "CNY", Name: "Yuan Renminbi", MinorUnit: 100},
	"CZK": {Code: "CZK", Name: "Czech Koruna", MinorUnit: 100},
	"DKK": {Code: "DKK", Name: "Danish Krone", MinorUnit: 100},
	"EGP": {Code: "EGP", Name: "Egyptian Pound", MinorUnit: 100},
	"EUR": {Code: "EUR", Name: "Euro", MinorUnit: 100},
	"GBP": {Code: "GBP", Name: "Pound Sterling", MinorUnit: 100},
	"HKD": {Code: "HKD", Name: "Hong Kong Dollar", MinorUnit: 100},
	"HUF": {Code: "HUF", Name: "Forint", MinorUnit: 100},
	"IDR": {Code: "IDR", Name: "Rupiah", MinorUnit: 100},
	"ILS": {Code: "ILS", Name: "New Israeli Sheqel", MinorUnit: 100},
	"INR": {Code: "INR", Name: "Indian Rupee", MinorUnit: 100},
	"ISK": {Code: "ISK", Name: "Iceland Krona", MinorUnit: 1},
	"JOD": {Code: "JOD", Name: "Jordanian Dinar", MinorUnit: 1000},
	"JPY": {Code: "JPY", Name: "Yen", MinorUnit: 1},
	"KRW": {Code: "KRW", Name: "Won", MinorUnit: 1},
	"KWD": {Code: "KWD", Name: "Kuwaiti Dinar", MinorUnit: 1000},
	"MXN": {Code: "MXN", Name: "Mexican Peso", MinorUnit: 100},
	"MYR": {Code: "MYR", Name: "Malaysian Ringgit", MinorUnit: 100},
	"NOK": {Code: "NOK", Name: "Norwegian Krone", MinorUnit: 100},
	"NZD": {Code: "NZD", Name: "New Zealand Dollar", MinorUnit: 100},
	"OMR": {Code: "OMR", Name: "Rial Omani", MinorUnit: 1000},
	"PHP": {Code: "PHP", Name: "Philippine Peso", MinorUnit: 100},
	"PLN": {Code: "PLN", Name: "Zloty", MinorUnit: 100},
	"QAR": {Code: "QAR", Name: "Qatari Rial", MinorUnit: 100},
	"RON": {Code: "RON", Name: "Romanian Leu", MinorUnit: 100},
	"RUB": {Code: "RUB", Name: "Russian Ruble", MinorUnit: 100},
	"SAR": {Code: "SAR", Name: "Saudi Riyal", MinorUnit: 100},
	"SEK": {Code: "SEK", Name: "Swedish Krona", MinorUnit: 100},
	"SGD": {Code: "SGD", Name: "Singapore Dollar", MinorUnit: 100},
	"THB": {Code: "THB", Name: "Baht", MinorUnit: 100},
	"TND": {Code: "TND", Name: "Tunisian Dinar", MinorUnit: 1000},
	"TRY": {Code: "TRY", Name: "Turkish Lira", MinorUnit: 100},
	"TWD": {Code: "TWD", Name: "New Taiwan Dollar", MinorUnit: 100},
	"USD": {Code: "USD", Name: "US Dollar", MinorUnit: 100},
	"VES": {Code: "VES", Name: "Bolivar Soberano", MinorUnit: 100},
	"VND": {Code: "VND", Name: "Dong", MinorUnit: 1},
	"ZAR": {Code: "ZAR", Name: "Rand", MinorUnit: 100},
}

// Parse normalizes and validates a raw currency code
func Parse(raw string) (Code, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 3 {
		return "", fmt.Errorf("%w: %q (must be 3 letters)", ErrInvalidCode, raw)
	}

	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", fmt.Errorf("%w: %q (must be A-Z)", ErrInvalidCode, raw)
		}
	}

	code := Code(s)
	if _, ok := registry[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
	}

	return code, nil
}

// Lookup fetches the metadata for the given currency code
func Lookup(code Code) (Info, error) {
	info, ok := registry[code]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}

	return info, nil
}

// All lists all known currencies, sorted by code
func All() []Info {
	out := make([]Info, 0, len(registry))

	for _, info := range registry {
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})

	return out
}

// DecimalPlaces derives the decimal-place count from the minor-unit divisor.
// Power-of-ten divisors are resolved with exact integer arithmetic, so a
// divisor of 1000 always yields 3 (never a float rounding artifact)
func DecimalPlaces(divisor int64) int32 {
	if divisor <= 1 {
		return 0
	}

	var (
		places int32
		v      = divisor
	)

	for v%10 == 0 {
		v /= 10
		places++
	}

	if v == 1 {
		return places
	}

	// Non-power-of-ten divisor (e.g. 5 for the Mauritanian ouguiya)
	return int32(math.Round(math.Log10(float64(divisor))))
}

// Set is an optional whitelist of permitted currencies.
// A nil Set permits every known currency
type Set map[Code]struct{}

// NewSet creates a currency whitelist from the given codes
func NewSet(codes ...Code) Set {
	s := make(Set, len(codes))

	for _, c := range codes {
		s[c] = struct{}{}
	}

	return s
}

// Allows checks whether the given code is permitted by the set
func (s Set) Allows(code Code) bool {
	if s == nil {
		return true
	}

	_, ok := s[code]

	return ok
}

// Codes lists the permitted codes, sorted
func (s Set) Codes() []Code {
	out := make([]Code, 0, len(s))

	for c := range s {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})

	return out
}
