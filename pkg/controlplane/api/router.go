package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/aund/internal/controlplane/api/handlers"
	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/metrics"
)

const requestTimeout = 30 * time.Second

// NewRouter returns the admin API routes. The /api/v1 tree is mounted
// only when fs is non-nil.
func NewRouter(fs FileServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	health := handlers.NewHealthHandler(fs)
	r.Get("/health", health.Liveness)
	r.Get("/health/", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	if fs != nil {
		r.Route("/api/v1", func(r chi.Router) {
			sessions := handlers.NewSessionHandler(fs)
			r.Get("/sessions", sessions.List)
			r.Delete("/sessions/{id}", sessions.Logoff)
			r.Get("/discs", handlers.NewDiscHandler(fs).List)
		})
	}
	return r
}

// requestLogger logs each completed request. Probes and scrapes are
// logged at debug so a monitoring loop does not flood the log.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			logger.Bytes(ww.BytesWritten()),
			logger.DurationMs(logger.Duration(start)),
		}
		if isProbePath(r.URL.Path) {
			logger.Debug("API request", args...)
			return
		}
		logger.Info("API request", args...)
	})
}

func isProbePath(path string) bool {
	return path == "/metrics" || path == "/health" || strings.HasPrefix(path, "/health/")
}
