package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/Friiyous/reseau-social/internal/models"
)

// DataStore defines the interface for persistent storage of users,
// conversations, messages and notifications.
// Both PostgresStore and SQLiteStore implement this interface.
//
// Lookups of a single row return (nil, nil) when the row does not exist.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	UserStore
	ConversationStore
	MessageStore
	NotificationStore
}

// UserStore reads the identity records issued by the account service.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListActiveUserIDs(ctx context.Context) ([]int64, error)
}

// ConversationStore holds at most one conversation per unordered user pair.
type ConversationStore interface {
	// GetOrCreateConversation normalises the pair and inserts it if absent.
	// Concurrent callers for the same pair observe the same row.
	GetOrCreateConversation(ctx context.Context, a, b int64) (conv *models.Conversation, created bool, err error)
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	FindConversation(ctx context.Context, a, b int64) (*models.Conversation, error)
	// ListConversationsForUser orders by last activity, newest first.
	// A limit <= 0 returns every row.
	ListConversationsForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Conversation, error)
	TouchConversation(ctx context.Context, conversationID, messageID int64) error
}

// MessageStore is the append-only message log plus its read flags.
type MessageStore interface {
	// AppendMessage inserts an unread message and touches its conversation
	// in the same transaction.
	AppendMessage(ctx context.Context, conversationID, senderID, receiverID int64, content string) (*models.Message, error)
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	ListConversationMessages(ctx context.Context, conversationID int64) ([]models.Message, error)
	ListMessagesForUser(ctx context.Context, userID int64) ([]models.Message, error)
	// MarkConversationRead flips viewer's unread messages in the conversation
	// and returns the ids that changed.
	MarkConversationRead(ctx context.Context, conversationID, viewerID int64) ([]int64, error)
	CountUnreadMessages(ctx context.Context, userID int64) (int64, error)
	CountUnreadInConversation(ctx context.Context, conversationID, viewerID int64) (int64, error)
}

// NotificationStore persists per-user notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateNotifications(ctx context.Context, ns []*models.Notification) error
	ListNotifications(ctx context.Context, userID int64, skip, limit int) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID int64) (int64, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID, userID int64) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
	DeleteNotification(ctx context.Context, id uuid.UUID, userID int64) (bool, error)
}

var (
	_ DataStore = (*PostgresStore)(nil)
	_ DataStore = (*SQLiteStore)(nil)
)
