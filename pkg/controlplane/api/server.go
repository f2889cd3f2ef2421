// Package api serves aund's admin HTTP API: health probes, Prometheus
// metrics, and the file server's live sessions and discs.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/aund/internal/fileserver"
	"github.com/marmos91/aund/internal/logger"
)

// FileServer is the part of the file server the API exposes.
type FileServer interface {
	Healthcheck(ctx context.Context) error
	Sessions() []fileserver.SessionInfo
	Logoff(id string) error
	Disc() (fileserver.DiscInfo, error)
}

// Server is the admin HTTP server.
//
//	GET    /health               liveness
//	GET    /health/ready         readiness (root and metadata store)
//	GET    /metrics              Prometheus, 404 when metrics are off
//	GET    /api/v1/sessions      live sessions
//	DELETE /api/v1/sessions/{id} log a session off
//	GET    /api/v1/discs         served discs and free space
type Server struct {
	server   *http.Server
	config   APIConfig
	stopOnce sync.Once
	stopErr  error
}

// NewServer builds a stopped server; Start serves it. fs may be nil, in
// which case only the health and metrics endpoints are mounted.
func NewServer(config APIConfig, fs FileServer) (*Server, error) {
	config.ApplyDefaults()

	return &Server{
		config: config,
		server: &http.Server{
			Addr:         net.JoinHostPort(config.Address, strconv.Itoa(config.Port)),
			Handler:      NewRouter(fs),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}, nil
}

// Start binds the listener and serves until ctx is cancelled, then shuts
// down gracefully. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("API server failed: %w", err)
	}
	logger.Info("API server listening", "address", ln.Addr().String())

	served := make(chan error, 1)
	go func() {
		served <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop shuts the server down. Later calls return the first result.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.Err(err))
			return
		}
		logger.Info("API server stopped")
	})
	return s.stopErr
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}
