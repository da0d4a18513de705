// Package metrics exposes Prometheus instrumentation for the
// controller: queue depth, dispatch counts by task, and relay outcome
// counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the controller's Prometheus collectors. Callers
// register it with a prometheus.Registerer of their choosing.
type Metrics struct {
	QueueDepth     prometheus.Gauge
	DispatchCount  *prometheus.CounterVec
	RelayOutcome   *prometheus.CounterVec
}

// New builds a Metrics bundle with the standard "crmd_core" namespace.
func New() *Metrics {
	return &Metrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crmd_core",
			Subsystem: "fsa",
			Name:      "queue_depth",
			Help:      "Number of entries currently queued in the FSA input queue.",
		}),
		DispatchCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crmd_core",
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Number of requests dispatched, by task.",
		}, []string{"task"}),
		RelayOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crmd_core",
			Subsystem: "router",
			Name:      "relay_total",
			Help:      "Number of relay attempts, by outcome.",
		}, []string{"outcome"}),
	}
}

// MustRegister registers every collector with reg, panicking on a
// duplicate-registration error the way prometheus's own helper does.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.QueueDepth, m.DispatchCount, m.RelayOutcome)
}

// ObserveDispatch increments the dispatch counter for task.
func (m *Metrics) ObserveDispatch(task string) {
	m.DispatchCount.WithLabelValues(task).Inc()
}

// ObserveRelay increments the relay outcome counter.
func (m *Metrics) ObserveRelay(outcome string) {
	m.RelayOutcome.WithLabelValues(outcome).Inc()
}

// SetQueueDepth updates the queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}
