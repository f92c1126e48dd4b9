// Package metrics provides Prometheus collectors for the session server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricCommandsTotal     = "watchroom_commands_total"
	MetricRoomsCreatedTotal = "watchroom_rooms_created_total"
	MetricRoomsActive       = "watchroom_rooms_active"
	MetricConnectionsActive = "watchroom_connections_active"
)

// Metrics contains the Prometheus collectors. All operations are
// thread-safe.
type Metrics struct {
	commandsTotal     *prometheus.CounterVec
	roomsCreatedTotal prometheus.Counter
}

// NewMetrics creates all collectors. They are not registered; call
// Register with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCommandsTotal,
			Help: "Total number of inbound protocol commands by kind",
		}, []string{"command"}),
		roomsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRoomsCreatedTotal,
			Help: "Total number of rooms created",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.commandsTotal,
		m.roomsCreatedTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RegisterGauges wires live-count gauges backed by the given read
// functions.
func RegisterGauges(reg prometheus.Registerer, roomCount, connCount func() float64) error {
	rooms := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: MetricRoomsActive,
		Help: "Number of live rooms",
	}, roomCount)
	conns := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: MetricConnectionsActive,
		Help: "Number of live WebSocket connections",
	}, connCount)
	for _, c := range []prometheus.Collector{rooms, conns} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncCommands increments the command counter for one command kind.
func (m *Metrics) IncCommands(kind string) {
	m.commandsTotal.WithLabelValues(kind).Inc()
}

// IncRoomsCreated increments the created-rooms counter.
func (m *Metrics) IncRoomsCreated() {
	m.roomsCreatedTotal.Inc()
}
