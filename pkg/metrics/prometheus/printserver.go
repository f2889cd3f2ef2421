package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// printServerMetrics is the Prometheus implementation of
// metrics.PrintServerMetrics.
type printServerMetrics struct {
	enquiries  *prometheus.CounterVec
	jobs       *prometheus.CounterVec
	jobBytes   prometheus.Histogram
	activeJobs prometheus.Gauge
}

func newPrintServerMetrics(f promauto.Factory) *printServerMetrics {
	return &printServerMetrics{
		enquiries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_print_enquiries_total",
				Help: "Print server status enquiries by reason code",
			},
			[]string{"reason"},
		),
		jobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aund_print_jobs_total",
				Help: "Completed print jobs by result",
			},
			[]string{"result"},
		),
		jobBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aund_print_job_bytes",
			Help:    "Size of spooled print jobs",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B to 4MB
		}),
		activeJobs: f.NewGauge(prometheus.GaugeOpts{
			Name: "aund_print_active_jobs",
			Help: "Print jobs currently being spooled",
		}),
	}
}

func (m *printServerMetrics) RecordEnquiry(reason uint8) {
	if m == nil {
		return
	}
	m.enquiries.WithLabelValues(strconv.Itoa(int(reason))).Inc()
}

func (m *printServerMetrics) RecordJob(bytes uint64, success bool) {
	if m == nil {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	m.jobs.WithLabelValues(result).Inc()
	m.jobBytes.Observe(float64(bytes))
}

func (m *printServerMetrics) SetActiveJobs(count int) {
	if m == nil {
		return
	}
	m.activeJobs.Set(float64(count))
}
