package collab

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/p2pkit/upgrader/pkg/interfaces"
)

// Metrics is the default Metrics collaborator, backed by Prometheus
// counters registered against the caller-supplied registerer.
type Metrics struct {
	connections  prometheus.Counter
	streams      *prometheus.CounterVec
	dialerEvents *prometheus.CounterVec
}

var _ interfaces.Metrics = (*Metrics)(nil)

// NewMetrics registers the upgrader's counters against reg and returns a
// Metrics collaborator. Pass prometheus.NewRegistry() for an isolated
// registry, or prometheus.DefaultRegisterer to use the global one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "upgrader",
			Name:      "connections_total",
			Help:      "Multiaddr connections observed by the upgrader, before gating.",
		}),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upgrader",
			Name:      "protocol_streams_total",
			Help:      "Streams negotiated per protocol.",
		}, []string{"protocol"}),
		dialerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upgrader",
			Name:      "dialer_events_total",
			Help:      "Dialer events by outcome.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.connections, m.streams, m.dialerEvents)
	return m
}

func (m *Metrics) TrackMultiaddrConnection(interfaces.MultiaddrConnLike) {
	m.connections.Inc()
}

func (m *Metrics) TrackProtocolStream(stream interfaces.MuxedStream, _ interfaces.UpgradedConnection) {
	m.streams.WithLabelValues(string(stream.Protocol())).Inc()
}

func (m *Metrics) CountDialerEvent(event string) {
	m.dialerEvents.WithLabelValues(event).Inc()
}
