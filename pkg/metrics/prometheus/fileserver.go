package prometheus

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fileServerMetrics is the Prometheus implementation of
// metrics.FileServerMetrics.
type fileServerMetrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	bytes          *prometheus.CounterVec
	activeSessions prometheus.Gauge
	openHandles    prometheus.Gauge
	examineCache   *prometheus.CounterVec
	logins         *prometheus.CounterVec
}

func newFileServerMetrics(f promauto.Factory) *fileServerMetrics {
	return &fileServerMetrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_fs_requests_total",
				Help: "Total number of file server requests by function and Acorn error code",
			},
			[]string{"function", "error_code"}, // error_code "" on success
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aund_fs_request_duration_seconds",
				Help:    "File server request duration, bulk transfer included",
				Buckets: durationBuckets,
			},
			[]string{"function"},
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_fs_bytes_total",
				Help: "Bulk transfer payload bytes by function and direction",
			},
			[]string{"function", "direction"}, // "send", "receive"
		),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "aund_fs_active_sessions",
			Help: "Number of live client sessions",
		}),
		openHandles: f.NewGauge(prometheus.GaugeOpts{
			Name: "aund_fs_open_handles",
			Help: "Number of handles open across all sessions",
		}),
		examineCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_fs_examine_cache_total",
				Help: "Directory listings served from the session cache (hit) or by rescanning (miss)",
			},
			[]string{"result"},
		),
		logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_fs_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (m *fileServerMetrics) RecordRequest(function string, duration time.Duration, errorCode uint8) {
	if m == nil {
		return
	}
	code := ""
	if errorCode != 0 {
		code = fmt.Sprintf("0x%02X", errorCode)
	}
	m.requests.WithLabelValues(function, code).Inc()
	m.duration.WithLabelValues(function).Observe(duration.Seconds())
}

func (m *fileServerMetrics) RecordBytesTransferred(function string, direction string, bytes uint64) {
	if m == nil {
		return
	}
	m.bytes.WithLabelValues(function, direction).Add(float64(bytes))
}

func (m *fileServerMetrics) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(count))
}

func (m *fileServerMetrics) SetOpenHandles(count int) {
	if m == nil {
		return
	}
	m.openHandles.Set(float64(count))
}

func (m *fileServerMetrics) RecordExamineCache(hit bool) {
	if m == nil {
		return
	}
	m.examineCache.WithLabelValues(hitLabel(hit)).Inc()
}

func (m *fileServerMetrics) RecordLogin(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
