package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Friiyous/reseau-social/internal/apperr"
	"github.com/Friiyous/reseau-social/internal/directory"
	"github.com/Friiyous/reseau-social/internal/live"
	"github.com/Friiyous/reseau-social/internal/messaging"
	"github.com/Friiyous/reseau-social/internal/notify"
	"github.com/Friiyous/reseau-social/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db            store.DataStore
	redis         *store.RedisStore
	dir           *directory.Directory
	messages      *messaging.Service
	notifications *notify.Service
	hub           *live.Hub
	validate      *validator.Validate
	logger        zerolog.Logger
}

// Deps groups the services a Handler is built from. Redis may be nil.
type Deps struct {
	Store         store.DataStore
	Redis         *store.RedisStore
	Directory     *directory.Directory
	Messages      *messaging.Service
	Notifications *notify.Service
	Hub           *live.Hub
	Logger        zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		db:            d.Store,
		redis:         d.Redis,
		dir:           d.Directory,
		messages:      d.Messages,
		notifications: d.Notifications,
		hub:           d.Hub,
		validate:      validate,
		logger:        d.Logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// AppError maps a service error to its HTTP status. Internal errors are
// logged and hidden from the client.
func (h *Handler) AppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(apperr.CodeOf(err))
	if status == http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		h.Error(w, status, "internal error")
		return
	}
	h.Error(w, status, apperr.MessageOf(err))
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument, apperr.CodeMalformed:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst and validates its struct tags. It
// writes the error response and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.Error(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads a non-negative integer query parameter, or def when absent
// or invalid.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
