package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Friiyous/reseau-social/internal/apperr"
	"github.com/Friiyous/reseau-social/internal/metrics"
	"github.com/Friiyous/reseau-social/internal/models"
	"github.com/Friiyous/reseau-social/internal/store"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Store is the persistence the notification service needs.
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListActiveUserIDs(ctx context.Context) ([]int64, error)
	store.NotificationStore
}

// LiveSink pushes an event to a user's live channel if they are online.
type LiveSink interface {
	Deliver(userID int64, event any) bool
}

// Draft is the caller-supplied part of a notification.
type Draft struct {
	Title   string
	Message string
	Type    models.NotificationType
	Data    map[string]any
}

// Service creates and manages notifications. Delivery (live channel, then
// mobile push) only happens after the notification is stored, and its
// failure never removes it.
type Service struct {
	store  Store
	live   LiveSink
	push   PushSender
	logger zerolog.Logger
}

// NewService creates a notification service. live may be nil.
func NewService(st Store, live LiveSink, push PushSender, logger zerolog.Logger) *Service {
	logger = logger.With().Str("component", "notify").Logger()
	if push == nil {
		push = NewLogSender(logger)
	}
	return &Service{store: st, live: live, push: push, logger: logger}
}

func (d *Draft) validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return apperr.InvalidArg("title is required")
	}
	if d.Type == "" {
		d.Type = models.NotificationInfo
	}
	if !d.Type.Valid() {
		return apperr.ErrInvalidNotifType
	}
	return nil
}

func (d *Draft) build(userID int64) *models.Notification {
	data := make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		data[k] = v
	}
	return &models.Notification{
		UserID:  userID,
		Title:   d.Title,
		Message: d.Message,
		Type:    d.Type,
		Data:    data,
	}
}

// Create stores a notification for one user and delivers it.
func (s *Service) Create(ctx context.Context, userID int64, draft Draft) (*models.Notification, error) {
	if err := draft.validate(); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to look up user", err)
	}
	if user == nil {
		return nil, apperr.ErrUserNotFound
	}

	n := draft.build(userID)
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, apperr.Internal("failed to store notification", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	s.deliver(ctx, user, n)
	return n, nil
}

// CreateBulk stores one notification per distinct user in a single
// transaction, then delivers each.
func (s *Service) CreateBulk(ctx context.Context, userIDs []int64, draft Draft) ([]*models.Notification, error) {
	if err := draft.validate(); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, apperr.InvalidArg("user_ids is required")
	}

	seen := make(map[int64]bool, len(userIDs))
	users := make([]*models.User, 0, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, apperr.Internal("failed to look up user", err)
		}
		if u == nil {
			return nil, apperr.NotFound(fmt.Sprintf("user %d not found", id))
		}
		users = append(users, u)
	}

	ns := make([]*models.Notification, len(users))
	for i, u := range users {
		ns[i] = draft.build(u.ID)
	}
	if err := s.store.CreateNotifications(ctx, ns); err != nil {
		return nil, apperr.Internal("failed to store notifications", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(draft.Type)).Add(float64(len(ns)))

	for i, u := range users {
		s.deliver(ctx, u, ns[i])
	}
	return ns, nil
}

// CreateForAllActive notifies every active user.
func (s *Service) CreateForAllActive(ctx context.Context, draft Draft) ([]*models.Notification, error) {
	userIDs, err := s.store.ListActiveUserIDs(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	if len(userIDs) == 0 {
		return []*models.Notification{}, nil
	}
	s.logger.Info().Str("title", draft.Title).Int("recipients", len(userIDs)).Msg("broadcasting notification")
	return s.CreateBulk(ctx, userIDs, draft)
}

// SendTest sends the user a test notification.
func (s *Service) SendTest(ctx context.Context, userID int64) (*models.Notification, error) {
	return s.Create(ctx, userID, Draft{
		Title:   "Test notification",
		Message: "This is a test notification to check that delivery works.",
		Type:    models.NotificationInfo,
		Data:    map[string]any{"test": true},
	})
}

// List returns a page of the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, skip, limit int) ([]models.Notification, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	ns, err := s.store.ListNotifications(ctx, userID, skip, limit)
	if err != nil {
		return nil, apperr.Internal("failed to list notifications", err)
	}
	if ns == nil {
		ns = []models.Notification{}
	}
	return ns, nil
}

// UnreadCount counts the user's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("failed to count notifications", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, userID int64) error {
	ok, err := s.store.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		return apperr.Internal("failed to update notification", err)
	}
	if !ok {
		return apperr.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks all of the user's notifications read and returns how
// many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("failed to update notifications", err)
	}
	return n, nil
}

// Delete removes one of the user's notifications.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, userID int64) error {
	ok, err := s.store.DeleteNotification(ctx, id, userID)
	if err != nil {
		return apperr.Internal("failed to delete notification", err)
	}
	if !ok {
		return apperr.ErrNotificationNotFound
	}
	return nil
}

// deliver pushes a stored notification to the live channel and to the
// user's device. Errors are logged and counted only.
func (s *Service) deliver(ctx context.Context, user *models.User, n *models.Notification) {
	if s.live != nil {
		s.live.Deliver(user.ID, models.NewNotificationEvent{Type: models.EventNotification, Data: n})
	}

	if user.DeviceToken == nil || *user.DeviceToken == "" {
		metrics.PushAttempts.WithLabelValues("no_token").Inc()
		s.logger.Debug().Int64("user_id", user.ID).Msg("user has no device token")
		return
	}

	err := s.push.Send(ctx, PushMessage{
		Token: *user.DeviceToken,
		Title: n.Title,
		Body:  n.Message,
		Data:  stringData(n.Data),
	})
	if err != nil {
		metrics.PushAttempts.WithLabelValues("failed").Inc()
		s.logger.Warn().Err(err).Int64("user_id", user.ID).Str("notification_id", n.ID.String()).Msg("push delivery failed")
		return
	}
	metrics.PushAttempts.WithLabelValues("sent").Inc()
}
