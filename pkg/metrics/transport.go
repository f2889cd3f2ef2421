package metrics

import (
	"github.com/marmos91/aund/pkg/transport"
)

// NewTransportMetrics creates a Prometheus-backed transport.Metrics.
//
// Returns nil if metrics are not enabled. Transports treat a nil Metrics
// as disabled.
func NewTransportMetrics() transport.Metrics {
	if !IsEnabled() || newPrometheusTransportMetrics == nil {
		return nil
	}
	return newPrometheusTransportMetrics()
}

var newPrometheusTransportMetrics func() transport.Metrics

// RegisterTransportMetricsConstructor registers the Prometheus constructor.
func RegisterTransportMetricsConstructor(constructor func() transport.Metrics) {
	newPrometheusTransportMetrics = constructor
}
