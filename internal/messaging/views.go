package messaging

import (
	"time"

	"github.com/Friiyous/reseau-social/internal/directory"
	"github.com/Friiyous/reseau-social/internal/models"
)

// MessageView is a message decorated with both participants' profiles.
type MessageView struct {
	ID             int64             `json:"id"`
	ConversationID int64             `json:"conversation_id"`
	Content        string            `json:"content"`
	SenderID       int64             `json:"sender_id"`
	ReceiverID     int64             `json:"receiver_id"`
	IsRead         bool              `json:"is_read"`
	CreatedAt      time.Time         `json:"created_at"`
	Sender         directory.Profile `json:"sender"`
	Receiver       directory.Profile `json:"receiver"`
}

// ConversationView is one inbox entry as seen by a viewer.
type ConversationView struct {
	ID          int64             `json:"id"`
	User1ID     int64             `json:"user1_id"`
	User2ID     int64             `json:"user2_id"`
	User1       directory.Profile `json:"user1"`
	User2       directory.Profile `json:"user2"`
	OtherUser   directory.Profile `json:"other_user"`
	LastMessage *MessageView      `json:"last_message"`
	UnreadCount int64             `json:"unread_count"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ConversationDetail is a conversation with its full, read-marked history.
type ConversationDetail struct {
	ConversationView
	Messages   []MessageView `json:"messages"`
	MarkedRead int64         `json:"marked_read"`
}

func messageView(m *models.Message, profiles map[int64]directory.Profile) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
		Sender:         profiles[m.SenderID],
		Receiver:       profiles[m.ReceiverID],
	}
}

func conversationView(c *models.Conversation, viewerID int64, profiles map[int64]directory.Profile) ConversationView {
	return ConversationView{
		ID:        c.ID,
		User1ID:   c.User1ID,
		User2ID:   c.User2ID,
		User1:     profiles[c.User1ID],
		User2:     profiles[c.User2ID],
		OtherUser: profiles[c.Counterpart(viewerID)],
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
