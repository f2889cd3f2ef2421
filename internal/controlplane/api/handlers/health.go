package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthCheckTimeout bounds one readiness check.
const HealthCheckTimeout = 5 * time.Second

// Checker is implemented by the engines the readiness probe checks.
type Checker interface {
	Healthcheck(ctx context.Context) error
}

// Liveness is the data of GET /health.
type Liveness struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// Readiness is the data of a passing GET /health/ready.
type Readiness struct {
	Latency string `json:"latency"`
}

// HealthHandler serves the unauthenticated probes.
type HealthHandler struct {
	checker Checker
	started time.Time
}

// NewHealthHandler returns a handler whose readiness probe runs checker.
// A nil checker is never ready.
func NewHealthHandler(checker Checker) *HealthHandler {
	return &HealthHandler{checker: checker, started: time.Now()}
}

// Liveness answers 200 while the process serves HTTP at all.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	up := time.Since(h.started)
	respond(w, http.StatusOK, StatusHealthy, Liveness{
		Service:   "aund",
		StartedAt: h.started.UTC().Format(time.RFC3339),
		Uptime:    up.Round(time.Second).String(),
		UptimeSec: int64(up.Seconds()),
	})
}

// Readiness answers 200 when the served root and the metadata store are
// usable, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		respondUnhealthy(w, "file server not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.checker.Healthcheck(ctx); err != nil {
		respondUnhealthy(w, err.Error())
		return
	}
	respond(w, http.StatusOK, StatusHealthy, Readiness{Latency: time.Since(start).String()})
}
