package telemetry

// Config configures span export.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector, e.g. "localhost:4317".
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of root spans kept, 0 to 1.
	SampleRate float64

	// Transport ("aun" or "beebem") and Station ("net.station", BeebEm
	// only) are attached to every span as resource attributes.
	Transport string
	Station   string
}
