package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the session subsystem collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ops          *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session lifecycle operations by outcome.",
		}, []string{"op", "outcome"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authcore",
			Subsystem: "session",
			Name:      "store_duration_seconds",
			Help:      "Latency of session store calls.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"call"}),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.storeLatency)
	}
	return m
}

func (m *Metrics) op(op, outcome string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) store(call string, d time.Duration) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(call).Observe(d.Seconds())
}
