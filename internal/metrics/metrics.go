// Package metrics exposes bulkship counters to Prometheus.
//
// A nil *Collector is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bulkship"

// Outcome labels for processed blocks.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Collector holds the Prometheus collectors for one registry.
type Collector struct {
	blocksTotal    *prometheus.CounterVec
	commandsTotal  *prometheus.CounterVec
	sessionsActive prometheus.Gauge
	linesRejected  prometheus.Counter
	sessionsTotal  prometheus.Counter
}

// New creates a collector and registers it with registerer.
// A nil registerer gets a private registry, which keeps tests isolated.
func New(registerer prometheus.Registerer) (*Collector, error) {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	c := &Collector{
		blocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "blocks_total",
				Help:      "Blocks processed by worker pools, by pool and outcome",
			},
			[]string{"pool", "outcome"},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "commands_total",
				Help:      "Commands contained in blocks processed by worker pools",
			},
			[]string{"pool"},
		),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sessions_active",
			Help:      "Connections currently accepting input",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sessions_total",
			Help:      "Connections opened since start",
		}),
		linesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "lines_rejected_total",
			Help:      "Input lines dropped for exceeding the maximum line length",
		}),
	}

	collectors := []prometheus.Collector{
		c.blocksTotal,
		c.commandsTotal,
		c.sessionsActive,
		c.sessionsTotal,
		c.linesRejected,
	}
	for _, col := range collectors {
		if err := registerer.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ObserveBlock records one processed block.
func (c *Collector) ObserveBlock(pool string, commands int, failed bool) {
	if c == nil {
		return
	}
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeFailed
	}
	c.blocksTotal.WithLabelValues(pool, outcome).Inc()
	c.commandsTotal.WithLabelValues(pool).Add(float64(commands))
}

// SessionOpened records a new active connection.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsTotal.Inc()
	c.sessionsActive.Inc()
}

// SessionClosed records a connection that stopped accepting input.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Dec()
}

// LineRejected records a line dropped for length.
func (c *Collector) LineRejected() {
	if c == nil {
		return
	}
	c.linesRejected.Inc()
}
