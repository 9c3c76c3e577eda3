package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics by registering a counter per event
// type and a histogram of completed-step durations against the supplied
// registry. Registration failures from double-registering the same
// collector are swallowed so callers can safely construct multiple Buses
// against a shared registry in tests.
type PrometheusMetrics struct {
	events   *prometheus.CounterVec
	stepTime prometheus.Histogram
}

// NewPrometheusMetrics registers orchestrator collectors against reg. If reg
// is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_events_total",
		Help: "Count of lifecycle events emitted by the workflow engine, by type.",
	}, []string{"type"})

	stepTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orchestrator_step_duration_seconds",
		Help:    "Duration of completed workflow steps.",
		Buckets: prometheus.DefBuckets,
	})

	_ = reg.Register(events)
	_ = reg.Register(stepTime)

	return &PrometheusMetrics{events: events, stepTime: stepTime}
}

// ObserveEvent increments the counter for eventType.
func (m *PrometheusMetrics) ObserveEvent(eventType Type) {
	m.events.WithLabelValues(string(eventType)).Inc()
}

// ObserveStepDuration records a completed step's duration in seconds.
func (m *PrometheusMetrics) ObserveStepDuration(seconds float64) {
	m.stepTime.Observe(seconds)
}

var _ Metrics = (*PrometheusMetrics)(nil)
