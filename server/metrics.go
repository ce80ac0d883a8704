package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Metrics tracks the server's operational counters
type Metrics struct {
	registry *prometheus.Registry

	rateLookups *prometheus.CounterVec
	conversions *prometheus.CounterVec
}

// NewMetrics creates a new metrics collection
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rateLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "penny",
			Name:      "rate_lookups_total",
			Help:      "Rate lookups, by strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	conversions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "penny",
			Name:      "conversions_total",
			Help:      "Currency conversions, by strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	registry.MustRegister(rateLookups, conversions)

	return &Metrics{
		registry:    registry,
		rateLookups: rateLookups,
		conversions: conversions,
	}
}

// Handler exposes the metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{},
	)
}

func (m *Metrics) observeLookup(strategy string, err error) {
	m.rateLookups.WithLabelValues(strategy, outcome(err)).Inc()
}

func (m *Metrics) observeConversion(strategy string, err error) {
	m.conversions.WithLabelValues(strategy, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return statusError
	}

	return statusOK
}
