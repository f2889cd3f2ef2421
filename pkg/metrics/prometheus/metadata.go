package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metadataMetrics is the Prometheus implementation of
// metrics.MetadataMetrics.
type metadataMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	lookups    *prometheus.CounterVec
}

func newMetadataMetrics(f promauto.Factory) *metadataMetrics {
	return &metadataMetrics{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_metadata_operations_total",
				Help: "Metadata store operations by store type, operation and status",
			},
			[]string{"store_type", "operation", "status"}, // status "success", "error"
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aund_metadata_operation_duration_seconds",
				Help:    "Metadata store operation duration",
				Buckets: durationBuckets,
			},
			[]string{"store_type", "operation"},
		),
		lookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_metadata_lookups_total",
				Help: "Metadata lookups that found a record (hit) or fell back to defaults (miss)",
			},
			[]string{"store_type", "result"},
		),
	}
}

func (m *metadataMetrics) ObserveOperation(storeType string, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(storeType, operation, status).Inc()
	m.duration.WithLabelValues(storeType, operation).Observe(duration.Seconds())
}

func (m *metadataMetrics) RecordLookup(storeType string, hit bool) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(storeType, hitLabel(hit)).Inc()
}
