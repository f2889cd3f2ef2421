package metrics

// PrintServerMetrics provides observability for the Econet print server.
// Pass nil to disable.
type PrintServerMetrics interface {
	// RecordEnquiry records a status enquiry by reason code.
	RecordEnquiry(reason uint8)

	// RecordJob records a completed print job.
	//
	// Parameters:
	//   - bytes: Size of the spooled job
	//   - success: false if the spool file could not be written
	RecordJob(bytes uint64, success bool)

	// SetActiveJobs updates the number of jobs currently being spooled.
	SetActiveJobs(count int)
}

// NewPrintServerMetrics creates a Prometheus-backed PrintServerMetrics, or
// nil if metrics are not enabled.
func NewPrintServerMetrics() PrintServerMetrics {
	if !IsEnabled() || newPrometheusPrintServerMetrics == nil {
		return nil
	}
	return newPrometheusPrintServerMetrics()
}

var newPrometheusPrintServerMetrics func() PrintServerMetrics

// RegisterPrintServerMetricsConstructor registers the Prometheus constructor.
func RegisterPrintServerMetricsConstructor(constructor func() PrintServerMetrics) {
	newPrometheusPrintServerMetrics = constructor
}
