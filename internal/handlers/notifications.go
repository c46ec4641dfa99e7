package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Friiyous/reseau-social/internal/api/middleware"
	"github.com/Friiyous/reseau-social/internal/models"
	"github.com/Friiyous/reseau-social/internal/notify"
)

// NotificationRequest is the admin request to notify one user or everyone.
type NotificationRequest struct {
	UserID  int64                   `json:"user_id" validate:"omitempty,gt=0"`
	Title   string                  `json:"title" validate:"required,max=200"`
	Message string                  `json:"message" validate:"max=2000"`
	Type    models.NotificationType `json:"type" validate:"omitempty,oneof=info success warning error message event follow like comment system"`
	Data    map[string]any          `json:"data"`
}

// BulkNotificationRequest is the admin request to notify a list of users.
type BulkNotificationRequest struct {
	UserIDs []int64                 `json:"user_ids" validate:"required,min=1,max=1000,dive,gt=0"`
	Title   string                  `json:"title" validate:"required,max=200"`
	Message string                  `json:"message" validate:"max=2000"`
	Type    models.NotificationType `json:"type" validate:"omitempty,oneof=info success warning error message event follow like comment system"`
	Data    map[string]any          `json:"data"`
}

// NotificationListResponse represents a page of notifications.
type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count,omitempty"`
}

// ListNotifications returns a page of the caller's notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", notify.DefaultLimit)

	ns, err := h.notifications.List(r.Context(), user.ID, skip, limit)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, NotificationListResponse{Notifications: ns})
}

// UnreadNotifications returns the caller's unread notification count.
func (h *Handler) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	count, err := h.notifications.UnreadCount(r.Context(), user.ID)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

// MarkNotificationRead marks one of the caller's notifications read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid notification ID format")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, user.ID); err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{Message: "notification marked as read"})
}

// MarkAllNotificationsRead marks every notification of the caller read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	count, err := h.notifications.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("%d notifications marked as read", count),
		Count:   count,
	})
}

// DeleteNotification removes one of the caller's notifications.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid notification ID format")
		return
	}

	if err := h.notifications.Delete(r.Context(), id, user.ID); err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{Message: "notification deleted"})
}

// SendTestNotification sends the caller a test notification.
func (h *Handler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	n, err := h.notifications.SendTest(r.Context(), user.ID)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, n)
}

// AdminSend notifies one user.
func (h *Handler) AdminSend(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		h.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	n, err := h.notifications.Create(r.Context(), req.UserID, draftOf(req.Title, req.Message, req.Type, req.Data))
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, n)
}

// AdminSendBulk notifies a list of users.
func (h *Handler) AdminSendBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkNotificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	ns, err := h.notifications.CreateBulk(r.Context(), req.UserIDs, draftOf(req.Title, req.Message, req.Type, req.Data))
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("%d notifications sent", len(ns)),
		Count:   int64(len(ns)),
	})
}

// AdminSendAll notifies every active user.
func (h *Handler) AdminSendAll(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	ns, err := h.notifications.CreateForAllActive(r.Context(), draftOf(req.Title, req.Message, req.Type, req.Data))
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("%d notifications sent to all users", len(ns)),
		Count:   int64(len(ns)),
	})
}

func draftOf(title, message string, typ models.NotificationType, data map[string]any) notify.Draft {
	return notify.Draft{Title: title, Message: message, Type: typ, Data: data}
}
