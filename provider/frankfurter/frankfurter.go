package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/provider"
)

const defaultTimeout = time.Second * 10

// Provider is a frankfurter-style JSON API provider.
// Expected response shape:
//
//	{"base": "USD", "date": "2026-08-23", "rates": {"EGP": 47.57}}
type Provider struct {
	client *http.Client
	url    string
	apiKey string
}

// latestResponse is the provider's latest-rates payload
type latestResponse struct {
	Base  string                 `json:"base"`
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

// New creates a new JSON API provider for the given endpoint URL
func New(endpoint string, opts ...Option) *Provider {
	p := &Provider{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		url: endpoint,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Provider) Name() string {
	return "frankfurter"
}

func (p *Provider) FetchRate(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (decimal.Decimal, error) {
	// Prepare the request
	endpoint, err := url.Parse(p.url)
	if err != nil {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("invalid endpoint URL: %w", err),
		)
	}

	q := endpoint.Query()
	q.Set("base", base.String())
	q.Set("symbols", quote.String())
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		endpoint.String(),
		http.NoBody,
	)
	if err != nil {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("unable to create new GET request: %w", err),
		)
	}

	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	// Execute the request
	resp, err := p.client.Do(req)
	if err != nil {
		// Timeouts and connection errors are worth retrying
		return decimal.Zero, provider.Transient(
			fmt.Errorf("unable to execute GET request: %w", err),
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, provider.StatusError(resp.StatusCode)
	}

	// Parse the response
	var payload latestResponse

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	if err := dec.Decode(&payload); err != nil {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("malformed response body: %w", err),
		)
	}

	raw, ok := payload.Rates[quote.String()]
	if !ok {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("no rate for %s/%s in response", base, quote),
		)
	}

	value, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("unable to parse rate %q: %w", raw.String(), err),
		)
	}

	if !value.IsPositive() {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("non-positive rate %s for %s/%s", value, base, quote),
		)
	}

	return value, nil
}
