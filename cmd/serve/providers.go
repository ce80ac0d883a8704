package serve

import (
	"errors"
	"fmt"

	"github.com/pennyfx/penny/provider"
	"github.com/pennyfx/penny/provider/cbe"
	"github.com/pennyfx/penny/provider/frankfurter"
)

const (
	frankfurterProvider = "frankfurter"
	cbeProvider         = "cbe"
)

const (
	// Public Frankfurter API (ECB reference rates)
	defaultFrankfurterURL = "https://api.frankfurter.dev/v1/latest"

	// Official CBE exchange rate page
	defaultCBEURL = "https://www.cbe.org.eg/en/economic-research/statistics/cbe-exchange-rates"
)

var errUnknownProvider = errors.New("unknown provider")

// newProvider creates the configured live rate provider
func newProvider(name, url string) (provider.Provider, error) {
	switch name {
	case frankfurterProvider:
		if url == "" {
			url = defaultFrankfurterURL
		}

		return frankfurter.New(url), nil
	case cbeProvider:
		if url == "" {
			url = defaultCBEURL
		}

		return cbe.New(url), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, name)
	}
}
