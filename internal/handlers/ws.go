package handlers

import (
	"net/http"

	"github.com/Friiyous/reseau-social/internal/api/middleware"
)

// LiveChannel upgrades the request to the caller's live channel. It blocks
// until the socket closes.
func (h *Handler) LiveChannel(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.hub.ServeWS(w, r, user.ID)
}
