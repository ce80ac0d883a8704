package cbe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/provider"
)

const defaultTimeout = time.Second * 15

var two = decimal.NewFromInt(2)

// Provider scrapes the Central Bank of Egypt official-rates page.
// The page lists foreign currencies against the Egyptian pound,
// one table row per currency with buy and sell columns
type Provider struct {
	client *http.Client
	url    string
}

// New creates a new CBE website provider
func New(url string, opts ...Option) *Provider {
	p := &Provider{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		url: url,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Provider) Name() string {
	return "CBE"
}

func (p *Provider) FetchRate(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (decimal.Decimal, error) {
	// The page only quotes foreign currencies against EGP
	if quote != "EGP" {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("unsupported pair %s/%s", base, quote),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("unable to create new GET request: %w", err),
		)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, provider.Transient(
			fmt.Errorf("unable to execute GET request: %w", err),
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, provider.StatusError(resp.StatusCode)
	}

	// Construct document for parsing
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("unable to construct query doc: %w", err),
		)
	}

	var (
		found bool
		mid   decimal.Decimal
	)

	doc.Find("table tbody tr").EachWithBreak(
		func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td")
			if cells.Length() < 3 {
				return true
			}

			name := strings.TrimSpace(cells.Eq(0).Text())
			if nameToCurrency(name) != base {
				return true
			}

			buy, buyErr := parseRateCell(cells.Eq(1).Text())
			sell, sellErr := parseRateCell(cells.Eq(2).Text())

			if buyErr != nil || sellErr != nil {
				return true
			}

			mid = buy.Add(sell).Div(two)
			found = true

			return false
		},
	)

	if !found {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("no rate row for %s on page", base),
		)
	}

	if !mid.IsPositive() {
		return decimal.Zero, provider.Permanent(
			fmt.Errorf("non-positive rate %s for %s/EGP", mid, base),
		)
	}

	return mid, nil
}

// parseRateCell parses a rate value from a table cell.
// The page uses plain decimal notation with optional thousands commas
func parseRateCell(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty rate cell")
	}

	return decimal.NewFromString(s)
}

// nameToCurrency maps the currency name on the page to a common code
func nameToCurrency(name string) currency.Code {
	switch strings.ToLower(name) {
	case "us dollar":
		return "USD"
	case "euro":
		return "EUR"
	case "pound sterling":
		return "GBP"
	case "swiss franc":
		return "CHF"
	case "japanese yen (100)", "japanese yen":
		return "JPY"
	case "saudi riyal":
		return "SAR"
	case "kuwaiti dinar":
		return "KWD"
	case "uae dirham":
		return "AED"
	case "chinese yuan":
		return "CNY"
	default:
		return ""
	}
}
