package models

// Event types pushed to live channels.
const (
	EventNewMessage   = "new_message"
	EventTypingStatus = "typing_status"
	EventMessageRead  = "message_read"
	EventNotification = "notification"
)

// NewMessageEvent carries a message payload to its receiver.
type NewMessageEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// TypingStatusEvent tells a peer that SenderID started or stopped typing.
type TypingStatusEvent struct {
	Type     string `json:"type"`
	SenderID int64  `json:"sender_id"`
	IsTyping bool   `json:"is_typing"`
}

// MessageReadEvent tells a sender that one of their messages was read.
// ConversationID and ReaderID are set when the server emits the receipt.
type MessageReadEvent struct {
	Type           string `json:"type"`
	MessageID      int64  `json:"message_id"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	ReaderID       int64  `json:"reader_id,omitempty"`
}

// NewNotificationEvent pushes a freshly created notification.
type NewNotificationEvent struct {
	Type string        `json:"type"`
	Data *Notification `json:"data"`
}
