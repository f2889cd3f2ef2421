package handlers

import (
	"net/http"

	"github.com/marmos91/aund/internal/fileserver"
)

// DiscProvider describes the discs the file server exports.
type DiscProvider interface {
	Disc() (fileserver.DiscInfo, error)
}

// DiscHandler handles /api/v1/discs.
type DiscHandler struct {
	discs DiscProvider
}

// NewDiscHandler creates a new disc handler.
func NewDiscHandler(discs DiscProvider) *DiscHandler {
	return &DiscHandler{discs: discs}
}

// List handles GET /api/v1/discs. aund serves a single disc; the list
// form matches what the file server reports to READ_DISCS.
func (h *DiscHandler) List(w http.ResponseWriter, r *http.Request) {
	disc, err := h.discs.Disc()
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	respond(w, http.StatusOK, StatusOK, []fileserver.DiscInfo{disc})
}
