package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pagelens"

// Outcome labels for fetch attempts.
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeFatal     = "fatal"
	OutcomeExhausted = "exhausted"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	fetchAttempts      *prometheus.CounterVec
	fetchDuration      prometheus.Histogram
	rotations          prometheus.Counter
	extractionWarnings *prometheus.CounterVec
	pagesExtracted     prometheus.Counter
	relayRequests      *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry,
// together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		fetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Fetch attempts by outcome.",
			},
			[]string{"outcome"},
		),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of single fetch attempts.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		rotations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "identity_rotations_total",
				Help:      "Proxy and user agent rotations between attempts.",
			},
		),
		extractionWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_warnings_total",
				Help:      "Non-fatal extraction anomalies by category.",
			},
			[]string{"category"},
		),
		pagesExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_extracted_total",
				Help:      "Pages turned into records.",
			},
		),
		relayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_requests_total",
				Help:      "Relay requests by route and status code.",
			},
			[]string{"route", "status"},
		),
	}

	reg.MustRegister(
		m.fetchAttempts,
		m.fetchDuration,
		m.rotations,
		m.extractionWarnings,
		m.pagesExtracted,
		m.relayRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(seconds)
}

// IncFetchOutcome records an outcome without a duration, such as retries
// running out.
func (m *Metrics) IncFetchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(outcome).Inc()
}

// IncRotation records one identity rotation.
func (m *Metrics) IncRotation() {
	if m == nil {
		return
	}
	m.rotations.Inc()
}

// IncWarning records one extraction warning.
func (m *Metrics) IncWarning(category string) {
	if m == nil {
		return
	}
	m.extractionWarnings.WithLabelValues(category).Inc()
}

// IncPage records one extracted page.
func (m *Metrics) IncPage() {
	if m == nil {
		return
	}
	m.pagesExtracted.Inc()
}

// IncRelay records one relay response.
func (m *Metrics) IncRelay(route, status string) {
	if m == nil {
		return
	}
	m.relayRequests.WithLabelValues(route, status).Inc()
}
