package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// transportMetrics is the Prometheus implementation of transport.Metrics.
type transportMetrics struct {
	retransmits *prometheus.CounterVec
	ackTimeouts *prometheus.CounterVec
	packets     *prometheus.CounterVec
	bytes       *prometheus.CounterVec
}

func newTransportMetrics(f promauto.Factory) *transportMetrics {
	return &transportMetrics{
		retransmits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_transport_retransmits_total",
				Help: "Reliable unicast retransmissions by transport",
			},
			[]string{"transport"}, // "aun", "beebem"
		),
		ackTimeouts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_transport_ack_timeouts_total",
				Help: "Reliable unicasts abandoned after the retry budget ran out",
			},
			[]string{"transport"},
		),
		packets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_transport_packets_total",
				Help: "Packets by transport and direction",
			},
			[]string{"transport", "direction"}, // "in", "out"
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_transport_bytes_total",
				Help: "Wire bytes by transport and direction",
			},
			[]string{"transport", "direction"},
		),
	}
}

func (m *transportMetrics) RecordRetransmit(kind string) {
	if m == nil {
		return
	}
	m.retransmits.WithLabelValues(kind).Inc()
}

func (m *transportMetrics) RecordAckTimeout(kind string) {
	if m == nil {
		return
	}
	m.ackTimeouts.WithLabelValues(kind).Inc()
}

func (m *transportMetrics) RecordPacket(kind string, direction string, bytes int) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues(kind, direction).Inc()
	m.bytes.WithLabelValues(kind, direction).Add(float64(bytes))
}
