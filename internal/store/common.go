package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/Friiyous/reseau-social/internal/apperr"
	"github.com/Friiyous/reseau-social/internal/ids"
	"github.com/Friiyous/reseau-social/internal/models"
)

// canonicalPair validates and orders a conversation pair.
func canonicalPair(a, b int64) (int64, int64, error) {
	if a == b {
		return 0, 0, apperr.ErrSamePair
	}
	lo, hi := models.CanonicalPair(a, b)
	return lo, hi, nil
}

// prepareNotification fills the id, timestamp and payload defaults.
func prepareNotification(n *models.Notification) {
	if n.ID == uuid.Nil {
		n.ID = ids.NewNotificationID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
}
