package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Friiyous/reseau-social/internal/models"
	"github.com/Friiyous/reseau-social/internal/token"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserGetter loads the account behind a verified token.
type UserGetter interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// AuthMiddleware verifies bearer tokens for authenticated endpoints.
type AuthMiddleware struct {
	users  UserGetter
	secret string
	logger zerolog.Logger
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(users UserGetter, secret string, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{users: users, secret: secret, logger: logger}
}

// RequireAuth verifies the bearer token and loads the active user into the
// request context. Websocket upgrades may pass the token as ?token= since
// browsers cannot set headers on them.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := token.Verify(m.secret, raw)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := m.users.GetUser(r.Context(), userID)
		if err != nil {
			m.logger.Error().Err(err).Int64("user_id", userID).Msg("auth user lookup failed")
			jsonError(w, http.StatusInternalServerError, "database error")
			return
		}
		if user == nil || !user.IsActive {
			jsonError(w, http.StatusUnauthorized, "user not found or inactive")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin rejects non-admin users. It must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !user.IsAdmin {
			m.logger.Warn().
				Str("type", "security").
				Str("event", "admin_denied").
				Int64("user_id", user.ID).
				Str("endpoint", r.URL.Path).
				Msg("non-admin attempted admin endpoint")
			jsonError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
