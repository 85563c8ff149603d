package notify

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bren2010/notetree/tree/accumulator"
)

// Metrics tracks the size of a tree in Prometheus.
type Metrics struct {
	capacity  uint64
	size      prometheus.Gauge
	remaining prometheus.Gauge
	appends   prometheus.Counter
}

// NewMetrics registers the metrics of a tree with the given capacity with
// `reg`. Call Set once the tree is opened, since a tree loaded from the
// database doesn't emit any event until its next append.
func NewMetrics(reg prometheus.Registerer, capacity uint64) *Metrics {
	m := &Metrics{
		capacity: capacity,
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tree_size",
			Help: "Number of leaves appended to the tree.",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tree_capacity_remaining",
			Help: "Number of leaves that can still be appended to the tree.",
		}),
		appends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tree_appends",
			Help: "Incremented for each leaf appended since the process started.",
		}),
	}
	reg.MustRegister(m.size, m.remaining, m.appends)
	m.Set(0)
	return m
}

// Set updates the gauges to reflect a tree with `size` leaves.
func (m *Metrics) Set(size uint64) {
	m.size.Set(float64(size))
	m.remaining.Set(float64(m.capacity - size))
}

func (m *Metrics) Notify(ev *accumulator.Event) {
	switch ev.Kind {
	case accumulator.Created:
		m.Set(0)
	case accumulator.Appended:
		m.appends.Inc()
		if ev.Index == math.MaxUint64 {
			m.Set(ev.Index)
		} else {
			m.Set(ev.Index + 1)
		}
	}
}
