package live

import (
	"github.com/rs/zerolog"

	"github.com/Friiyous/reseau-social/internal/metrics"
	"github.com/Friiyous/reseau-social/internal/models"
)

// Hub routes events to the live channels held in its registry.
// Delivery is best effort and at most once: nothing is queued or retried.
type Hub struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewHub creates a hub over registry.
func NewHub(registry *Registry, logger zerolog.Logger) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger.With().Str("component", "live").Logger(),
	}
}

// Registry returns the hub's registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// CloseAll sends a close frame on every live channel and drops them.
func (h *Hub) CloseAll() int {
	n := h.registry.CloseAll()
	h.logger.Info().Int("connections", n).Msg("closed live channels")
	return n
}

// Online reports whether userID holds a live channel.
func (h *Hub) Online(userID int64) bool {
	return h.registry.Online(userID)
}

// Deliver pushes event to userID if they are online. It reports whether the
// frame was written; an offline user is not an error.
func (h *Hub) Deliver(userID int64, event any) bool {
	kind := eventKind(event)

	conn := h.registry.Lookup(userID)
	if conn == nil {
		metrics.LiveEvents.WithLabelValues(kind, "offline").Inc()
		return false
	}

	if err := conn.Send(event); err != nil {
		metrics.LiveEvents.WithLabelValues(kind, "failed").Inc()
		h.logger.Debug().
			Err(err).
			Int64("user_id", userID).
			Str("conn_id", conn.ID).
			Str("event", kind).
			Msg("live delivery failed")
		return false
	}

	metrics.LiveEvents.WithLabelValues(kind, "delivered").Inc()
	return true
}

// Dispatch routes one inbound envelope sent by from. env must have passed
// DecodeEnvelope.
//
//	message      -> new_message to recipient_id, data passed through
//	typing       -> typing_status to recipient_id
//	read_receipt -> message_read to sender_id
//
// Unknown types are ignored.
func (h *Hub) Dispatch(from int64, env *Envelope) bool {
	switch env.Type {
	case TypeMessage:
		return h.Deliver(*env.RecipientID, models.NewMessageEvent{
			Type: models.EventNewMessage,
			Data: env.Data,
		})
	case TypeTyping:
		return h.Deliver(*env.RecipientID, models.TypingStatusEvent{
			Type:     models.EventTypingStatus,
			SenderID: from,
			IsTyping: *env.IsTyping,
		})
	case TypeReadReceipt:
		return h.Deliver(*env.SenderID, models.MessageReadEvent{
			Type:      models.EventMessageRead,
			MessageID: *env.MessageID,
			ReaderID:  from,
		})
	default:
		metrics.LiveEvents.WithLabelValues("unknown", "ignored").Inc()
		h.logger.Debug().
			Int64("user_id", from).
			Str("type", env.Type).
			Msg("ignoring unknown envelope type")
		return false
	}
}

func eventKind(event any) string {
	switch e := event.(type) {
	case models.NewMessageEvent:
		return e.Type
	case models.TypingStatusEvent:
		return e.Type
	case models.MessageReadEvent:
		return e.Type
	case models.NewNotificationEvent:
		return e.Type
	default:
		return "other"
	}
}
