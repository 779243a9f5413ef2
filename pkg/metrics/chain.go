package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChainMetrics records contract calls by method and outcome.
type ChainMetrics struct {
	duration *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

func NewChainMetrics(reg prometheus.Registerer) *ChainMetrics {
	if reg == nil {
		return &ChainMetrics{}
	}
	m := &ChainMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "contract_call_duration_seconds",
			Help:      "Latency of contract reads and mined writes.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_calls_total",
			Help:      "Contract calls by method and outcome (ok, reverted, error).",
		}, []string{"method", "outcome"}),
	}
	reg.MustRegister(m.duration, m.calls)
	return m
}

// Observe records one call. outcome is ok, reverted or error.
func (m *ChainMetrics) Observe(method, outcome string, d time.Duration) {
	if m == nil || m.calls == nil {
		return
	}
	m.duration.WithLabelValues(label(method)).Observe(d.Seconds())
	m.calls.WithLabelValues(label(method), label(outcome)).Inc()
}
