package models

import "time"

// Conversation pairs two users. User1ID is always the lower handle.
type Conversation struct {
	ID            int64     `json:"id"`
	User1ID       int64     `json:"user1_id"`
	User2ID       int64     `json:"user2_id"`
	LastMessageID *int64    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanonicalPair orders two handles lower first.
func CanonicalPair(a, b int64) (int64, int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Counterpart returns the participant that is not userID.
func (c *Conversation) Counterpart(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}
