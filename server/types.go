package server

import (
	"time"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

// RateResponse is a single resolved rate
type RateResponse struct {
	ObservedAt time.Time `json:"observed_at"`
	Base       string    `json:"base"`
	Quote      string    `json:"quote"`
	Rate       string    `json:"rate"`
	Origin     string    `json:"origin"`
}

func newRateResponse(rec *rate.Record) *RateResponse {
	return &RateResponse{
		Base:       rec.Base.String(),
		Quote:      rec.Quote.String(),
		Rate:       rec.Rate.String(),
		ObservedAt: rec.ObservedAt,
		Origin:     string(rec.Origin),
	}
}

// ConvertRequest is a conversion order
type ConvertRequest struct {
	Amount   string `json:"amount"`
	From     string `json:"from"`
	To       string `json:"to"`
	Strategy string `json:"strategy"`
}

// ConvertResponse is a completed conversion
type ConvertResponse struct {
	Rate      *RateResponse `json:"rate"`
	Amount    string        `json:"amount"`
	Currency  string        `json:"currency"`
	Formatted string        `json:"formatted"`
}

type CurrenciesResponse struct {
	Results []currency.Info `json:"results"`
}

type PairsResponse struct {
	Results []string `json:"results"`
}

type CacheStatsResponse struct {
	Records int `json:"records"`
	Pairs   int `json:"pairs"`
}

type PruneResponse struct {
	Evicted int `json:"evicted"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
