package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nftennis"

// JobMetrics records duration and outcome of scheduled jobs such as the
// auction sweep.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	ended    prometheus.Counter
}

// NewJobMetrics registers the job metrics on reg. A nil registerer yields a
// no-op recorder.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled jobs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_success_total",
			Help:      "Successful scheduled job runs.",
		}, []string{"job"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failure_total",
			Help:      "Failed scheduled job runs.",
		}, []string{"job"}),
		ended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_swept_total",
			Help:      "Expired auctions closed by the sweeper.",
		}),
	}
	reg.MustRegister(m.duration, m.success, m.failure, m.ended)
	return m
}

func (m *JobMetrics) ObserveDuration(job string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(label(job)).Observe(d.Seconds())
}

func (m *JobMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(label(job)).Inc()
}

func (m *JobMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(label(job)).Inc()
}

// AddSwept counts auctions the sweeper closed in one pass.
func (m *JobMetrics) AddSwept(n int) {
	if m == nil || m.ended == nil || n <= 0 {
		return
	}
	m.ended.Add(float64(n))
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
