// Package prometheus implements the metrics interfaces of pkg/metrics with
// prometheus/client_golang collectors. Importing it for side effects
// registers the constructors:
//
//	import _ "github.com/marmos91/aund/pkg/metrics/prometheus"
package prometheus

import (
	"sync"

	"github.com/marmos91/aund/pkg/metrics"
	"github.com/marmos91/aund/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterFileServerMetricsConstructor(func() metrics.FileServerMetrics {
		return instance(&fileServer, newFileServerMetrics)
	})
	metrics.RegisterTransportMetricsConstructor(func() transport.Metrics {
		return instance(&transportInst, newTransportMetrics)
	})
	metrics.RegisterPrintServerMetricsConstructor(func() metrics.PrintServerMetrics {
		return instance(&printServer, newPrintServerMetrics)
	})
	metrics.RegisterMetadataMetricsConstructor(func() metrics.MetadataMetrics {
		return instance(&metadataInst, newMetadataMetrics)
	})
}

// cached holds one collector set per registry. promauto panics when the
// same metric name is registered twice, so every constructor call against
// the same registry returns the same instance.
type cached[T any] struct {
	mu  sync.Mutex
	reg *prometheus.Registry
	val T
}

var (
	fileServer    cached[*fileServerMetrics]
	transportInst cached[*transportMetrics]
	printServer   cached[*printServerMetrics]
	metadataInst  cached[*metadataMetrics]
)

func instance[T any](c *cached[T], build func(promauto.Factory) T) T {
	reg := metrics.GetRegistry()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reg != reg {
		c.reg = reg
		c.val = build(promauto.With(reg))
	}
	return c.val
}

// durationBuckets covers a single sub-millisecond FS call up to a LOAD of a
// large file over a slow link.
var durationBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30,
}
