package messaging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Friiyous/reseau-social/internal/apperr"
	"github.com/Friiyous/reseau-social/internal/directory"
	"github.com/Friiyous/reseau-social/internal/metrics"
	"github.com/Friiyous/reseau-social/internal/models"
	"github.com/Friiyous/reseau-social/internal/store"
)

// Store is the persistence the messaging service needs.
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	store.ConversationStore
	store.MessageStore
}

// Notifier pushes an event to a user's live channel. Delivery is best
// effort and at most once; Deliver reports whether the event was written.
type Notifier interface {
	Deliver(userID int64, event any) bool
}

type noopNotifier struct{}

func (noopNotifier) Deliver(int64, any) bool { return false }

// Service implements conversations, the message log and read state.
type Service struct {
	store    Store
	dir      *directory.Directory
	notifier Notifier
	locks    *pairLocks
	logger   zerolog.Logger
}

// NewService creates a messaging service. A nil notifier disables live push.
func NewService(st Store, dir *directory.Directory, notifier Notifier, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{
		store:    st,
		dir:      dir,
		notifier: notifier,
		locks:    newPairLocks(),
		logger:   logger.With().Str("component", "messaging").Logger(),
	}
}

// GetOrCreateConversation returns the single conversation between a and b.
// Callers for the same pair are serialised in process; the store's unique
// index covers other processes.
func (s *Service) GetOrCreateConversation(ctx context.Context, a, b int64) (*models.Conversation, error) {
	if a == b {
		return nil, apperr.ErrSamePair
	}

	unlock := s.locks.lock(a, b)
	defer unlock()

	conv, created, err := s.store.GetOrCreateConversation(ctx, a, b)
	if err != nil {
		if apperr.CodeOf(err) != apperr.CodeUnknown {
			return nil, err
		}
		return nil, apperr.Internal("failed to open conversation", err)
	}
	if created {
		metrics.ConversationsCreated.Inc()
		s.logger.Debug().
			Int64("conversation_id", conv.ID).
			Int64("user1_id", conv.User1ID).
			Int64("user2_id", conv.User2ID).
			Msg("conversation created")
	}
	return conv, nil
}

// Send appends a message from sender to receiver and pushes it to the
// receiver's live channel. A failed push never fails the send.
func (s *Service) Send(ctx context.Context, senderID, receiverID int64, content string) (*MessageView, error) {
	if senderID == receiverID {
		return nil, apperr.ErrSelfMessage
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.ErrEmptyMessage
	}

	receiver, err := s.store.GetUser(ctx, receiverID)
	if err != nil {
		return nil, apperr.Internal("failed to look up receiver", err)
	}
	if receiver == nil {
		return nil, apperr.ErrReceiverNotFound
	}

	conv, err := s.GetOrCreateConversation(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	msg, err := s.store.AppendMessage(ctx, conv.ID, senderID, receiverID, content)
	if err != nil {
		return nil, apperr.Internal("failed to store message", err)
	}
	metrics.MessagesSent.Inc()

	profiles := s.dir.ResolveMany(ctx, senderID)
	profiles[receiverID] = directory.FromUser(receiver)
	view := messageView(msg, profiles)

	delivered := s.notifier.Deliver(receiverID, models.NewMessageEvent{
		Type: models.EventNewMessage,
		Data: view,
	})
	s.logger.Debug().
		Int64("message_id", msg.ID).
		Int64("conversation_id", conv.ID).
		Bool("delivered", delivered).
		Msg("message sent")

	return &view, nil
}

// ListConversations returns the user's inbox, most recent activity first.
func (s *Service) ListConversations(ctx context.Context, userID int64, limit, offset int) ([]ConversationView, error) {
	convs, err := s.store.ListConversationsForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list conversations", err)
	}

	participants := make([]int64, 0, 2*len(convs)+1)
	participants = append(participants, userID)
	for _, c := range convs {
		participants = append(participants, c.User1ID, c.User2ID)
	}
	profiles := s.dir.ResolveMany(ctx, participants...)

	views := make([]ConversationView, 0, len(convs))
	for i := range convs {
		c := &convs[i]
		view := conversationView(c, userID, profiles)

		if c.LastMessageID != nil {
			last, err := s.store.GetMessage(ctx, *c.LastMessageID)
			if err != nil {
				return nil, apperr.Internal("failed to load last message", err)
			}
			if last != nil {
				lv := messageView(last, profiles)
				view.LastMessage = &lv
			}
		}

		view.UnreadCount, err = s.store.CountUnreadInConversation(ctx, c.ID, userID)
		if err != nil {
			return nil, apperr.Internal("failed to count unread messages", err)
		}
		views = append(views, view)
	}
	return views, nil
}

// OpenConversation returns a conversation's history for viewer and marks
// every message addressed to viewer as read. The counterpart receives a
// message_read receipt per message that changed.
func (s *Service) OpenConversation(ctx context.Context, viewerID, conversationID int64) (*ConversationDetail, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, apperr.Internal("failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperr.ErrConversationNotFound
	}
	if !conv.HasParticipant(viewerID) {
		return nil, apperr.ErrNotParticipant
	}

	marked, err := s.markRead(ctx, conv, viewerID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.ListConversationMessages(ctx, conv.ID)
	if err != nil {
		return nil, apperr.Internal("failed to load messages", err)
	}

	profiles := s.dir.ResolveMany(ctx, conv.User1ID, conv.User2ID)
	detail := &ConversationDetail{
		ConversationView: conversationView(conv, viewerID, profiles),
		Messages:         make([]MessageView, 0, len(msgs)),
		MarkedRead:       marked,
	}
	for i := range msgs {
		detail.Messages = append(detail.Messages, messageView(&msgs[i], profiles))
	}
	if n := len(detail.Messages); n > 0 {
		last := detail.Messages[n-1]
		detail.LastMessage = &last
	}
	return detail, nil
}

// MarkConversationRead marks what counterpart sent to viewer as read and
// returns how many messages changed. A second call returns zero.
func (s *Service) MarkConversationRead(ctx context.Context, viewerID, counterpartID int64) (int64, error) {
	if viewerID == counterpartID {
		return 0, apperr.ErrSamePair
	}
	conv, err := s.store.FindConversation(ctx, viewerID, counterpartID)
	if err != nil {
		return 0, apperr.Internal("failed to load conversation", err)
	}
	if conv == nil {
		return 0, nil
	}
	return s.markRead(ctx, conv, viewerID)
}

// MarkConversationReadByID is MarkConversationRead addressed by conversation id.
func (s *Service) MarkConversationReadByID(ctx context.Context, viewerID, conversationID int64) (int64, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return 0, apperr.Internal("failed to load conversation", err)
	}
	if conv == nil {
		return 0, apperr.ErrConversationNotFound
	}
	if !conv.HasParticipant(viewerID) {
		return 0, apperr.ErrNotParticipant
	}
	return s.markRead(ctx, conv, viewerID)
}

func (s *Service) markRead(ctx context.Context, conv *models.Conversation, viewerID int64) (int64, error) {
	ids, err := s.store.MarkConversationRead(ctx, conv.ID, viewerID)
	if err != nil {
		return 0, apperr.Internal("failed to mark messages read", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	metrics.MessagesMarkedRead.Add(float64(len(ids)))

	counterpart := conv.Counterpart(viewerID)
	for _, id := range ids {
		s.notifier.Deliver(counterpart, models.MessageReadEvent{
			Type:           models.EventMessageRead,
			MessageID:      id,
			ConversationID: conv.ID,
			ReaderID:       viewerID,
		})
	}
	return int64(len(ids)), nil
}

// HistoryForUser returns every message the user sent or received, oldest first.
func (s *Service) HistoryForUser(ctx context.Context, userID int64) ([]MessageView, error) {
	msgs, err := s.store.ListMessagesForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load messages", err)
	}

	participants := make([]int64, 0, 2*len(msgs))
	for _, m := range msgs {
		participants = append(participants, m.SenderID, m.ReceiverID)
	}
	profiles := s.dir.ResolveMany(ctx, participants...)

	views := make([]MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, messageView(&msgs[i], profiles))
	}
	return views, nil
}

// UnreadCount counts unread messages addressed to the user across all
// conversations.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.CountUnreadMessages(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("failed to count unread messages", err)
	}
	return n, nil
}
