package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/Friiyous/reseau-social/internal/metrics"
	"github.com/Friiyous/reseau-social/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// observe records query latency.
func observe(start time.Time) {
	metrics.PostgresLatency.Observe(time.Since(start).Seconds())
}

const pgUserColumns = `id, username, first_name, last_name, district, role, avatar_url,
	device_token, is_admin, is_active, created_at`

func scanPGUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.District,
		&u.Role,
		&u.AvatarURL,
		&u.DeviceToken,
		&u.IsAdmin,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a user record.
func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	defer observe(time.Now())

	role := u.Role
	if role == "" {
		role = "agent_sante"
	}

	created, err := scanPGUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (username, first_name, last_name, district, role, avatar_url,
			device_token, is_admin, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+pgUserColumns,
		u.Username, u.FirstName, u.LastName, u.District, role, u.AvatarURL,
		u.DeviceToken, u.IsAdmin, u.IsActive,
	))
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}
	return created, nil
}

// GetUser retrieves a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	defer observe(time.Now())

	u, err := scanPGUser(s.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get user")
	}
	return u, nil
}

// ListActiveUserIDs returns the ids of every active user.
func (s *PostgresStore) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	defer observe(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT id FROM users WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list active users")
	}
	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	return userIDs, errors.Wrap(err, "list active users")
}

const pgConversationColumns = `id, user1_id, user2_id, last_message_id, created_at, updated_at`

func scanPGConversation(row pgx.Row) (*models.Conversation, error) {
	c := &models.Conversation{}
	err := row.Scan(
		&c.ID,
		&c.User1ID,
		&c.User2ID,
		&c.LastMessageID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetOrCreateConversation returns the pair's conversation, inserting it first
// if needed. The unique (user1_id, user2_id) constraint absorbs concurrent inserts.
func (s *PostgresStore) GetOrCreateConversation(ctx context.Context, a, b int64) (*models.Conversation, bool, error) {
	defer observe(time.Now())

	lo, hi, err := canonicalPair(a, b)
	if err != nil {
		return nil, false, err
	}

	conv, err := scanPGConversation(s.pool.QueryRow(ctx, `
		INSERT INTO conversations (user1_id, user2_id)
		VALUES ($1, $2)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
		RETURNING `+pgConversationColumns,
		lo, hi,
	))
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, errors.Wrap(err, "insert conversation")
	}

	// Lost the race or already present.
	conv, err = s.FindConversation(ctx, lo, hi)
	if err != nil {
		return nil, false, err
	}
	if conv == nil {
		return nil, false, errors.New("conversation vanished after conflict")
	}
	return conv, false, nil
}

// GetConversation retrieves a conversation by ID.
func (s *PostgresStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	defer observe(time.Now())

	c, err := scanPGConversation(s.pool.QueryRow(ctx, `
		SELECT `+pgConversationColumns+` FROM conversations WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get conversation")
	}
	return c, nil
}

// FindConversation looks up the pair in either order.
func (s *PostgresStore) FindConversation(ctx context.Context, a, b int64) (*models.Conversation, error) {
	lo, hi := models.CanonicalPair(a, b)
	c, err := scanPGConversation(s.pool.QueryRow(ctx, `
		SELECT `+pgConversationColumns+`
		FROM conversations WHERE user1_id = $1 AND user2_id = $2
	`, lo, hi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find conversation")
	}
	return c, nil
}

// ListConversationsForUser retrieves a user's conversations, most recent first.
func (s *PostgresStore) ListConversationsForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Conversation, error) {
	defer observe(time.Now())

	var limitArg *int // NULL means no limit
	if limit > 0 {
		limitArg = &limit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+pgConversationColumns+`
		FROM conversations
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limitArg, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		c, err := scanPGConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// TouchConversation points the conversation at its newest message.
func (s *PostgresStore) TouchConversation(ctx context.Context, conversationID, messageID int64) error {
	defer observe(time.Now())

	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET last_message_id = $1, updated_at = clock_timestamp() WHERE id = $2
	`, messageID, conversationID)
	return errors.Wrap(err, "touch conversation")
}

// AppendMessage stores a message and touches its conversation atomically.
func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID, senderID, receiverID int64, content string) (*models.Message, error) {
	defer observe(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin append")
	}
	defer tx.Rollback(ctx)

	// Appends to one conversation commit in id order; the row lock also keeps
	// last_message_id and updated_at moving forward.
	if _, err := tx.Exec(ctx, `SELECT 1 FROM conversations WHERE id = $1 FOR UPDATE`, conversationID); err != nil {
		return nil, errors.Wrap(err, "lock conversation")
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, content, created_at)
		VALUES ($1, $2, $3, $4, clock_timestamp())
		RETURNING id, is_read, created_at
	`, conversationID, senderID, receiverID, content).Scan(&msg.ID, &msg.IsRead, &msg.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE conversations SET last_message_id = $1, updated_at = $2 WHERE id = $3
	`, msg.ID, msg.CreatedAt, conversationID); err != nil {
		return nil, errors.Wrap(err, "touch conversation")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit append")
	}
	return msg, nil
}

const pgMessageColumns = `id, conversation_id, sender_id, receiver_id, content, is_read, created_at`

func scanPGMessage(row pgx.Row) (*models.Message, error) {
	m := &models.Message{}
	err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.ReceiverID,
		&m.Content,
		&m.IsRead,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	defer observe(time.Now())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		m, err := scanPGMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// GetMessage retrieves a message by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	m, err := scanPGMessage(s.pool.QueryRow(ctx, `
		SELECT `+pgMessageColumns+` FROM messages WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get message")
	}
	return m, nil
}

// ListConversationMessages returns one conversation's messages, oldest first.
func (s *PostgresStore) ListConversationMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT `+pgMessageColumns+`
		FROM messages WHERE conversation_id = $1
		ORDER BY id ASC
	`, conversationID)
	return msgs, errors.Wrap(err, "list conversation messages")
}

// ListMessagesForUser returns every message the user sent or received, oldest first.
func (s *PostgresStore) ListMessagesForUser(ctx context.Context, userID int64) ([]models.Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT `+pgMessageColumns+`
		FROM messages WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	return msgs, errors.Wrap(err, "list user messages")
}

// MarkConversationRead marks the viewer's unread messages as read.
func (s *PostgresStore) MarkConversationRead(ctx context.Context, conversationID, viewerID int64) ([]int64, error) {
	defer observe(time.Now())

	rows, err := s.pool.Query(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE conversation_id = $1 AND receiver_id = $2 AND is_read = FALSE
		RETURNING id
	`, conversationID, viewerID)
	if err != nil {
		return nil, errors.Wrap(err, "mark conversation read")
	}
	marked, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errors.Wrap(err, "mark conversation read")
	}
	if marked == nil {
		marked = []int64{}
	}
	return marked, nil
}

// CountUnreadMessages counts unread messages addressed to the user.
func (s *PostgresStore) CountUnreadMessages(ctx context.Context, userID int64) (int64, error) {
	defer observe(time.Now())

	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = FALSE
	`, userID).Scan(&count)
	return count, errors.Wrap(err, "count unread messages")
}

// CountUnreadInConversation counts the viewer's unread messages in one conversation.
func (s *PostgresStore) CountUnreadInConversation(ctx context.Context, conversationID, viewerID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND receiver_id = $2 AND is_read = FALSE
	`, conversationID, viewerID).Scan(&count)
	return count, errors.Wrap(err, "count unread in conversation")
}

const insertNotificationSQL = `
	INSERT INTO notifications (id, user_id, title, message, type, data, is_read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// CreateNotification stores one notification.
func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	defer observe(time.Now())

	prepareNotification(n)
	_, err := s.pool.Exec(ctx, insertNotificationSQL,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Data, n.IsRead, n.CreatedAt)
	return errors.Wrap(err, "insert notification")
}

// CreateNotifications stores a batch of notifications in one transaction.
func (s *PostgresStore) CreateNotifications(ctx context.Context, ns []*models.Notification) error {
	defer observe(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin bulk notifications")
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, n := range ns {
		prepareNotification(n)
		batch.Queue(insertNotificationSQL,
			n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Data, n.IsRead, n.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "insert notifications")
	}
	return errors.Wrap(tx.Commit(ctx), "commit bulk notifications")
}

// ListNotifications returns a user's notifications, newest first.
func (s *PostgresStore) ListNotifications(ctx context.Context, userID int64, skip, limit int) ([]models.Notification, error) {
	defer observe(time.Now())

	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, message, type, data, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, skip)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var typ string
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Message,
			&typ,
			&n.Data,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		n.Type = models.NotificationType(typ)
		if n.Data == nil {
			n.Data = map[string]any{}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountUnreadNotifications counts a user's unread notifications.
func (s *PostgresStore) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE
	`, userID).Scan(&count)
	return count, errors.Wrap(err, "count unread notifications")
}

// MarkNotificationRead marks one of the user's notifications as read.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, errors.Wrap(err, "mark notification read")
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAllNotificationsRead marks every unread notification of the user as read.
func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "mark all notifications read")
	}
	return tag.RowsAffected(), nil
}

// DeleteNotification removes one of the user's notifications.
func (s *PostgresStore) DeleteNotification(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, errors.Wrap(err, "delete notification")
	}
	return tag.RowsAffected() > 0, nil
}
