package handlers

import (
	"net/http"
	"time"
)

// Envelope statuses.
const (
	StatusOK        = "ok"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Response is the envelope of every successful reply and of the health
// probes. Failures outside the probes are RFC 7807 problems instead.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func respond(w http.ResponseWriter, code int, status string, data any) {
	WriteJSON(w, code, Response{Status: status, Timestamp: time.Now().UTC(), Data: data})
}

func respondUnhealthy(w http.ResponseWriter, err string) {
	WriteJSON(w, http.StatusServiceUnavailable, Response{
		Status:    StatusUnhealthy,
		Timestamp: time.Now().UTC(),
		Error:     err,
	})
}
