package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/aund/internal/fileserver"
	"github.com/marmos91/aund/internal/logger"
)

// SessionManager lists and ends file server sessions.
type SessionManager interface {
	Sessions() []fileserver.SessionInfo
	Logoff(id string) error
}

// SessionHandler handles /api/v1/sessions.
type SessionHandler struct {
	sessions SessionManager
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.Sessions()
	if list == nil {
		list = []fileserver.SessionInfo{}
	}
	respond(w, http.StatusOK, StatusOK, list)
}

// Logoff handles DELETE /api/v1/sessions/{id}, logging the client off
// as if it had sent BYE.
func (h *SessionHandler) Logoff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.sessions.Logoff(id)
	switch {
	case err == nil:
		logger.Info("Session logged off by administrator", "session", id)
		WriteNoContent(w)
	case errors.Is(err, fileserver.ErrInvalidSessionID):
		BadRequest(w, err.Error())
	case errors.Is(err, fileserver.ErrSessionNotFound):
		NotFound(w, "session not found")
	default:
		InternalServerError(w, err.Error())
	}
}
