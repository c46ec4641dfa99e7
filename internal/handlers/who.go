package handlers

import (
	"net/http"

	"github.com/Friiyous/reseau-social/internal/api/middleware"
	"github.com/Friiyous/reseau-social/internal/directory"
)

// WhoResponse represents a user profile with live presence.
type WhoResponse struct {
	directory.Profile
	Online bool `json:"online"`
}

// MeResponse is the authenticated user's own profile.
type MeResponse struct {
	directory.Profile
	Role    string `json:"role,omitempty"`
	IsAdmin bool   `json:"is_admin"`
	Online  bool   `json:"online"`
}

// Who handles user profile lookup.
func (h *Handler) Who(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	profile := h.dir.Resolve(r.Context(), id)
	if !profile.Exists {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	h.JSON(w, http.StatusOK, WhoResponse{
		Profile: profile,
		Online:  h.hub.Online(id),
	})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.JSON(w, http.StatusOK, MeResponse{
		Profile: directory.FromUser(user),
		Role:    user.Role,
		IsAdmin: user.IsAdmin,
		Online:  h.hub.Online(user.ID),
	})
}
