// Package metrics exposes Prometheus instrumentation for the queue engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters and gauges observed by a single queue
// engine instance. Each Queue constructs its own set labeled with the
// queue's directory so multiple queues in one process register distinct
// series.
type Metrics struct {
	Published prometheus.Counter
	Popped    prometheus.Counter
	Reclaimed prometheus.Counter
	Pruned    prometheus.Counter
	Pending   prometheus.Gauge
	MsgCount  prometheus.Gauge
}

// New builds and registers a Metrics set against reg, labeling every series
// with the queue's canonicalized path. Passing a nil registerer returns an
// unregistered Metrics usable for tests.
func New(reg prometheus.Registerer, queuePath string) *Metrics {
	labels := prometheus.Labels{"queue": queuePath}

	m := &Metrics{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem:   "pubqueue",
			Name:        "published_total",
			Help:        "Messages successfully published.",
			ConstLabels: labels,
		}),
		Popped: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem:   "pubqueue",
			Name:        "popped_total",
			Help:        "Messages popped by subscribers.",
			ConstLabels: labels,
		}),
		Reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem:   "pubqueue",
			Name:        "reclaimed_total",
			Help:        "Messages removed by dangling-message reclamation.",
			ConstLabels: labels,
		}),
		Pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem:   "pubqueue",
			Name:        "pruned_total",
			Help:        "Messages removed by high-water-mark overflow pruning.",
			ConstLabels: labels,
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem:   "pubqueue",
			Name:        "pending_messages",
			Help:        "Sum of pending_db counts: deliveries not yet popped by subscribers.",
			ConstLabels: labels,
		}),
		MsgCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem:   "pubqueue",
			Name:        "message_count",
			Help:        "Current meta_db entry count.",
			ConstLabels: labels,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Published, m.Popped, m.Reclaimed, m.Pruned, m.Pending, m.MsgCount)
	}
	return m
}
