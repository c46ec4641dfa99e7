package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType tags a notification for client-side rendering.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationMessage NotificationType = "message"
	NotificationEvent   NotificationType = "event"
	NotificationFollow  NotificationType = "follow"
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationSystem  NotificationType = "system"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError,
		NotificationMessage, NotificationEvent, NotificationFollow, NotificationLike,
		NotificationComment, NotificationSystem:
		return true
	}
	return false
}

// Notification is an asynchronous message addressed to one user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    int64            `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Data      map[string]any   `json:"data"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
