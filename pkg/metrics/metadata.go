package metrics

import (
	"time"
)

// MetadataMetrics provides observability for the load/exec metadata store.
// Pass nil to disable.
type MetadataMetrics interface {
	// ObserveOperation records one store call.
	//
	// Parameters:
	//   - storeType: "symlink" or "badger"
	//   - operation: "get", "set", "delete", "rename" or "remove_dir"
	//   - duration: Time taken
	//   - err: Error returned by the store, nil on success
	ObserveOperation(storeType string, operation string, duration time.Duration, err error)

	// RecordLookup records whether Get found recorded metadata (hit) or the
	// caller had to synthesise a default (miss).
	RecordLookup(storeType string, hit bool)
}

// NewMetadataMetrics creates a Prometheus-backed MetadataMetrics, or nil if
// metrics are not enabled.
func NewMetadataMetrics() MetadataMetrics {
	if !IsEnabled() || newPrometheusMetadataMetrics == nil {
		return nil
	}
	return newPrometheusMetadataMetrics()
}

var newPrometheusMetadataMetrics func() MetadataMetrics

// RegisterMetadataMetricsConstructor registers the Prometheus constructor.
func RegisterMetadataMetricsConstructor(constructor func() MetadataMetrics) {
	newPrometheusMetadataMetrics = constructor
}
