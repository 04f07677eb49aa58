package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/pkgresolve/internal/results"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	resolved *prometheus.CounterVec
	cached   prometheus.Counter
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pkgresolve",
			Name:      "targets_resolved_total",
			Help:      "Targets whose resolution strategy was invoked.",
		}, []string{"mode"}),
		cached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pkgresolve",
			Name:      "targets_cached_total",
			Help:      "Virtualized targets whose previous results were reused.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pkgresolve",
			Name:      "resolution_failures_total",
			Help:      "Strategy invocations that returned an error.",
		}, []string{"mode"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pkgresolve",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent in a single strategy invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.resolved, m.cached, m.failures, m.duration)
	}
	return m
}

func (m *Metrics) observeResolved(kind results.Kind, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolved.WithLabelValues(kind.String()).Inc()
	m.duration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) observeFailure(kind results.Kind) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeCached() {
	if m == nil {
		return
	}
	m.cached.Inc()
}
