package config

import (
	"os"
	"strings"
	"time"

	"github.com/marmos91/aund/pkg/controlplane/api"
)

// DefaultRoot is the served directory of a freshly generated config.
const DefaultRoot = "/srv/econet"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - FileServer.Root has no default and must be configured
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyTransportDefaults(&cfg.Transport)
	applyFileServerDefaults(&cfg.FileServer)
	applyPrintServerDefaults(&cfg.PrintServer)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyTransportDefaults picks AUN on the standard port.
func applyTransportDefaults(cfg *TransportConfig) {
	if cfg.Type == "" {
		cfg.Type = TransportAUN
	}
	cfg.Type = strings.ToLower(cfg.Type)

	if cfg.Listen == "" {
		cfg.Listen = ":32768"
	}
	if cfg.Network == 0 && cfg.Station == 0 {
		cfg.Station = 254
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 50
	}
}

// applyFileServerDefaults sets file server defaults.
func applyFileServerDefaults(cfg *FileServerConfig) {
	if cfg.Lib == "" {
		cfg.Lib = "Library"
	}
	if cfg.DiscName == "" {
		cfg.DiscName = defaultDiscName()
	}
	if cfg.TransferTimeout == 0 {
		cfg.TransferTimeout = 30 * time.Second
	}
	if cfg.Typemap.Default == 0 {
		cfg.Typemap.Default = 0xFFD
	}
	if cfg.Metadata.Type == "" {
		cfg.Metadata.Type = MetadataSymlink
	}
	cfg.Metadata.Type = strings.ToLower(cfg.Metadata.Type)
}

// defaultDiscName is the host name, cut to the 16 characters a disc
// name can hold.
func defaultDiscName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "aund"
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if len(name) > 16 {
		name = name[:16]
	}
	return name
}

// applyPrintServerDefaults sets print server defaults.
func applyPrintServerDefaults(cfg *PrintServerConfig) {
	if cfg.Name == "" {
		cfg.Name = "PRINT"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets admin API server defaults.
func applyAPIDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		FileServer: FileServerConfig{
			Root: DefaultRoot,
		},
		PrintServer: PrintServerConfig{
			SpoolDir: "/var/spool/aund",
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
