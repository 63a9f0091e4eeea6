// Package observability exposes Prometheus instruments for the voice
// pipeline. A nil *Metrics is valid and records nothing.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Turns          *prometheus.CounterVec
	StageLatency   *prometheus.HistogramVec
	ProviderErrors *prometheus.CounterVec
	DegradedTurns  *prometheus.CounterVec
	HistoryTurns   prometheus.Gauge
	SynthesisChars *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics registers the instruments on a fresh registry, alongside the
// Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by input kind and outcome.",
		}, []string{"input", "outcome"}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Pipeline stage latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}, []string{"stage"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "External service errors by provider and error kind.",
		}, []string{"provider", "kind"}),
		DegradedTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_turns_total",
			Help:      "Turns completed without speech, by reason.",
		}, []string{"reason"}),
		HistoryTurns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_turns",
			Help:      "Turns currently held in the conversation history.",
		}),
		SynthesisChars: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_characters_total",
			Help:      "Characters sent for synthesis by provider.",
		}, []string{"provider"}),
	}
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageLatency.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

// TurnDone counts a finished turn.
func (m *Metrics) TurnDone(input, outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(input, outcome).Inc()
}

// ProviderError counts a failure from an external service.
func (m *Metrics) ProviderError(provider, kind string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, kind).Inc()
}

// Degraded counts a turn that skipped speech.
func (m *Metrics) Degraded(reason string) {
	if m == nil {
		return
	}
	m.DegradedTurns.WithLabelValues(reason).Inc()
}

// Synthesized counts characters sent to a TTS provider.
func (m *Metrics) Synthesized(provider string, chars int) {
	if m == nil {
		return
	}
	m.SynthesisChars.WithLabelValues(provider).Add(float64(chars))
}

// SetHistory records the current history length.
func (m *Metrics) SetHistory(n int) {
	if m == nil {
		return
	}
	m.HistoryTurns.Set(float64(n))
}

// Registry returns the registry holding the instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
