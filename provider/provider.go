package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/currency"
)

var (
	// ErrTransient marks failures worth retrying:
	// timeouts, connection errors, 5xx and 429 responses
	ErrTransient = errors.New("transient network failure")

	// ErrPermanent marks failures retrying cannot fix:
	// malformed responses, unknown currencies, auth failures
	ErrPermanent = errors.New("permanent provider failure")
)

// Provider is a single exchange rate provider
type Provider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// FetchRate fetches the current rate for the given pair.
	// Failures are classified as transient or permanent
	FetchRate(ctx context.Context, base, quote currency.Code) (decimal.Decimal, error)
}

// Transient wraps the given error as a retryable failure
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Permanent wraps the given error as a non-retryable failure
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// StatusError classifies a non-2xx HTTP status code.
// 429 and 5xx responses are transient, every other status is permanent
func StatusError(status int) error {
	err := fmt.Errorf("unexpected status code %d", status)

	if status == http.StatusTooManyRequests || status >= 500 {
		return Transient(err)
	}

	return Permanent(err)
}
