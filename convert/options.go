package convert

import (
	"log/slog"

	"github.com/pennyfx/penny/currency"
)

type Option func(e *Engine)

// WithLogger specifies the logger for the engine
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithAllowedCurrencies restricts conversions to the given set.
// Without it, every known currency is permitted
func WithAllowedCurrencies(s currency.Set) Option {
	return func(e *Engine) {
		e.allowed = s
	}
}
