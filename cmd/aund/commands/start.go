package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/aund/internal/fileserver"
	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/printserver"
	"github.com/marmos91/aund/internal/telemetry"
	"github.com/marmos91/aund/pkg/config"
	"github.com/marmos91/aund/pkg/controlplane/api"
	"github.com/marmos91/aund/pkg/metrics"
	"github.com/marmos91/aund/pkg/station"
	"github.com/marmos91/aund/pkg/transport"
	"github.com/spf13/cobra"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/aund/pkg/metrics/prometheus"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the aund server",
	Long: `Start the aund file server (and print server, if enabled) in the
foreground. Run it under a process supervisor to keep it in the background.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/aund/config.yaml.

Examples:
  # Start with the default config file
  aund start

  # Start with custom config file
  aund start --config /etc/aund/config.yaml

  # Start with environment variable overrides
  AUND_LOGGING_LEVEL=DEBUG aund start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the server's PID to this file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "aund",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		Transport:      cfg.Transport.Type,
	}
	if cfg.Transport.Type == config.TransportBeebEm {
		telemetryCfg.Station = fmt.Sprintf("%d.%d", cfg.Transport.Network, cfg.Transport.Station)
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "aund",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		Transport:      cfg.Transport.Type,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("aund starting", "version", Version, "commit", Commit)
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	// Metrics must be enabled before any component asks for its metrics.
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	tr, err := config.CreateTransport(&cfg.Transport)
	if err != nil {
		return err
	}
	if err := tr.Setup(); err != nil {
		return fmt.Errorf("failed to set up %s transport: %w", cfg.Transport.Type, err)
	}
	defer func() { _ = tr.Close() }()
	logger.Info("Transport ready", "type", cfg.Transport.Type, "listen", cfg.Transport.Listen)

	meta, err := config.CreateMetadataStore(&cfg.FileServer.Metadata)
	if err != nil {
		return err
	}
	defer func() {
		if err := meta.Close(); err != nil {
			logger.Error("metadata store close error", "error", err)
		}
	}()

	pw, err := config.OpenPasswordFile(&cfg.FileServer)
	if err != nil {
		return err
	}
	if pw != nil {
		logger.Info("Password file loaded", "path", pw.Path(), "accounts", len(pw.Accounts()))
		go func() {
			if err := pw.Watch(ctx); err != nil {
				logger.Warn("Password file watch stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("No password file configured: only the anonymous user can log on")
	}

	fs, err := fileserver.New(cfg.FileServer.FileServer(pw, meta, Version), tr, metrics.NewFileServerMetrics())
	if err != nil {
		return fmt.Errorf("failed to create file server: %w", err)
	}
	defer func() { _ = fs.Close() }()
	logger.Info("File server configured", "root", fs.Root(), "disc", fs.DiscName())

	st := station.New(tr)
	st.Handle(transport.PortFileServer, fs)

	if cfg.PrintServer.Enabled {
		ps, err := printserver.New(cfg.PrintServer.PrintServer(), tr, metrics.NewPrintServerMetrics())
		if err != nil {
			return fmt.Errorf("failed to create print server: %w", err)
		}
		defer func() { _ = ps.Close() }()
		st.Handle(transport.PortPrintStatusEnquiry, ps)
		st.Handle(transport.PortPrintJob, ps)
		logger.Info("Print server enabled", "name", ps.Name(), "spool", cfg.PrintServer.SpoolDir)
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.NewServer(cfg.API, fs)
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
		logger.Info("API server enabled", "port", apiServer.Port())
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 3)
	go func() { serverDone <- st.Serve(ctx) }()
	if metricsServer != nil {
		go func() { serverDone <- metricsServer.Start(ctx) }()
	}
	if apiServer != nil {
		go func() { serverDone <- apiServer.Start(ctx) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var serveErr error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
	case serveErr = <-serverDone:
		if serveErr != nil {
			logger.Error("Server error", "error", serveErr)
		}
	}
	signal.Stop(sigChan)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	st.Stop()
	var errs []error
	if apiServer != nil {
		errs = append(errs, apiServer.Stop(shutdownCtx))
	}
	if metricsServer != nil {
		errs = append(errs, metricsServer.Stop(shutdownCtx))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}
