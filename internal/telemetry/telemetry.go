// Package telemetry provides Prometheus metrics and OpenTelemetry tracing for sync cycles.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "event-sync"

// Cycle statuses.
const (
	StatusSuccess     = "success"
	StatusFailed      = "failed"
	StatusRejected    = "rejected"
	StatusInterrupted = "interrupted"
)

// Metrics holds the event-sync Prometheus metrics.
type Metrics struct {
	// Cycle metrics
	CyclesTotal     *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	LastSuccessUnix prometheus.Gauge

	// Source metrics
	CandidatesFetched *prometheus.CounterVec
	AdapterPanics     *prometheus.CounterVec

	// Record metrics
	RecordsProcessed *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
}

// Provider wraps telemetry providers.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewProvider registers metrics with the default registry.
func NewProvider() *Provider {
	return NewProviderWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewProviderWithRegistry registers metrics with reg, so tests can use a private registry.
func NewProviderWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Provider {
	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  initMetrics(promauto.With(reg)),
		gatherer: gatherer,
	}
}

// NewNopProvider returns a provider backed by a throwaway registry.
func NewNopProvider() *Provider {
	reg := prometheus.NewRegistry()
	return NewProviderWithRegistry(reg, reg)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}

	m.CyclesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "event_sync_cycles_total",
		Help: "Sync cycles by final status (success, failed, rejected, interrupted)",
	}, []string{"status"})

	m.CycleDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "event_sync_cycle_duration_seconds",
		Help:    "Wall time of a complete sync cycle",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 2400},
	})

	m.LastSuccessUnix = f.NewGauge(prometheus.GaugeOpts{
		Name: "event_sync_last_success_timestamp_seconds",
		Help: "Unix time the last successful cycle finished",
	})

	m.CandidatesFetched = f.NewCounterVec(prometheus.CounterOpts{
		Name: "event_sync_candidates_fetched_total",
		Help: "Raw candidates returned by each source",
	}, []string{"source"})

	m.AdapterPanics = f.NewCounterVec(prometheus.CounterOpts{
		Name: "event_sync_adapter_panics_total",
		Help: "Source adapter calls that panicked",
	}, []string{"source"})

	m.RecordsProcessed = f.NewCounterVec(prometheus.CounterOpts{
		Name: "event_sync_records_total",
		Help: "Candidates by outcome (inserted, updated, skipped, failed)",
	}, []string{"outcome"})

	m.RecordsSkipped = f.NewCounterVec(prometheus.CounterOpts{
		Name: "event_sync_records_skipped_total",
		Help: "Skipped candidates by reason",
	}, []string{"reason"})

	return m
}
