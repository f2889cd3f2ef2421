package metrics

import (
	"time"
)

// FileServerMetrics provides observability for the Econet file server.
//
// Implementations collect per-function request counts and latencies, bulk
// transfer volume and session/handle gauges. This interface is optional:
// pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	srv := fileserver.New(cfg, tr, metrics.NewFileServerMetrics())
//
//	// Without metrics
//	srv := fileserver.New(cfg, tr, nil)
type FileServerMetrics interface {
	// RecordRequest records a completed file server request.
	//
	// Parameters:
	//   - function: FS function name (e.g., "OPEN", "GETBYTES", "EXAMINE")
	//   - duration: Time taken to handle the request, bulk transfer included
	//   - errorCode: Acorn error code of the reply, 0 if successful
	RecordRequest(function string, duration time.Duration, errorCode uint8)

	// RecordBytesTransferred records bulk data moved by a transfer.
	//
	// Parameters:
	//   - function: FS function name (e.g., "LOAD", "PUTBYTES")
	//   - direction: "send" (server to client) or "receive"
	//   - bytes: Number of payload bytes
	RecordBytesTransferred(function string, direction string, bytes uint64)

	// SetActiveSessions updates the number of live client sessions.
	SetActiveSessions(count int)

	// SetOpenHandles updates the number of handles open across all sessions.
	SetOpenHandles(count int)

	// RecordExamineCache records whether a directory listing continued from
	// the per-session cache (hit) or had to rescan the directory (miss).
	RecordExamineCache(hit bool)

	// RecordLogin records a login attempt and whether it succeeded.
	RecordLogin(success bool)
}

// NewFileServerMetrics creates a new Prometheus-backed FileServerMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or no
// implementation has registered itself.
func NewFileServerMetrics() FileServerMetrics {
	if !IsEnabled() || newPrometheusFileServerMetrics == nil {
		return nil
	}
	return newPrometheusFileServerMetrics()
}

// newPrometheusFileServerMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusFileServerMetrics func() FileServerMetrics

// RegisterFileServerMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterFileServerMetricsConstructor(constructor func() FileServerMetrics) {
	newPrometheusFileServerMetrics = constructor
}
