package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "tutorvoice"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Upstream call labels.
const (
	UpstreamCompletion = "completion"
	UpstreamSpeech     = "speech"
	UpstreamTranslate  = "translate"
)

// Metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	turns            *prometheus.CounterVec
	translations     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	historyMessages  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them, together with the Go
// runtime and process collectors, on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "turns_total",
			Help:      "Chat turns handled, by outcome.",
		}, []string{"outcome"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "translations_total",
			Help:      "Translation requests handled, by outcome.",
		}, []string{"outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of calls to the AI provider.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"call", "outcome"}),
		historyMessages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "history_messages",
			Help:      "Number of messages stored in a session after a turn.",
			Buckets:   prometheus.LinearBuckets(2, 8, 10),
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.turns,
		m.translations,
		m.upstreamDuration,
		m.historyMessages,
	)
	return m
}

// Registry returns the registry that backs the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTurn counts a finished chat turn.
func (m *Metrics) RecordTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

// RecordTranslation counts a finished translation.
func (m *Metrics) RecordTranslation(outcome string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the latency of one provider call.
func (m *Metrics) ObserveUpstream(call string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.upstreamDuration.WithLabelValues(call, outcome).Observe(elapsed.Seconds())
}

// ObserveHistory records the stored history length of a session.
func (m *Metrics) ObserveHistory(messages int) {
	if m == nil {
		return
	}
	m.historyMessages.Observe(float64(messages))
}
