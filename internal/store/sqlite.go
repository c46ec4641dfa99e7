package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/Friiyous/reseau-social/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/poro.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/poro.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// A single connection serialises writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, errors.Wrap(err, "init sqlite schema")
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'agent_sante',
		avatar_url TEXT NOT NULL DEFAULT '',
		device_token TEXT,
		is_admin BOOLEAN NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user1_id INTEGER NOT NULL REFERENCES users(id),
		user2_id INTEGER NOT NULL REFERENCES users(id),
		last_message_id INTEGER REFERENCES messages(id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (user1_id < user2_id),
		UNIQUE (user1_id, user2_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL REFERENCES conversations(id),
		sender_id INTEGER NOT NULL REFERENCES users(id),
		receiver_id INTEGER NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'info',
		data TEXT NOT NULL DEFAULT '{}',
		is_read BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_user1 ON conversations(user1_id, updated_at);
	CREATE INDEX IF NOT EXISTS idx_conversations_user2 ON conversations(user2_id, updated_at);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(receiver_id, is_read);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const sqliteUserColumns = `id, username, first_name, last_name, district, role, avatar_url,
	device_token, is_admin, is_active, created_at`

func scanSQLiteUser(row rowScanner) (*models.User, error) {
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

// CreateUser inserts a user record. Used for seeding; accounts are
// normally issued by the account service.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	role := u.Role
	if role == "" {
		role = "agent_sante"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, first_name, last_name, district, role, avatar_url,
			device_token, is_admin, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.Username, u.FirstName, u.LastName, u.District, role, u.AvatarURL,
		u.DeviceToken, u.IsAdmin, u.IsActive, time.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}
	return s.GetUser(ctx, id)
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	u, err := scanSQLiteUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get user")
	}
	return u, nil
}

// ListActiveUserIDs returns the ids of every active user.
func (s *SQLiteStore) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list active users")
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

const sqliteConversationColumns = `id, user1_id, user2_id, last_message_id, created_at, updated_at`

func scanSQLiteConversation(row rowScanner) (*models.Conversation, error) {
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
// if needed. The unique (user1_id, user2_id) index absorbs concurrent inserts.
func (s *SQLiteStore) GetOrCreateConversation(ctx context.Context, a, b int64) (*models.Conversation, bool, error) {
	lo, hi, err := canonicalPair(a, b)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (user1_id, user2_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
	`, lo, hi, now, now)
	if err != nil {
		return nil, false, errors.Wrap(err, "insert conversation")
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, errors.Wrap(err, "insert conversation")
	}

	conv, err := s.FindConversation(ctx, lo, hi)
	if err != nil {
		return nil, false, err
	}
	if conv == nil {
		return nil, false, errors.New("conversation vanished after insert")
	}
	return conv, inserted == 1, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteConversationColumns+` FROM conversations WHERE id = ?`, id)
	c, err := scanSQLiteConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get conversation")
	}
	return c, nil
}

// FindConversation looks up the pair in either order.
func (s *SQLiteStore) FindConversation(ctx context.Context, a, b int64) (*models.Conversation, error) {
	lo, hi := models.CanonicalPair(a, b)
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteConversationColumns+`
		FROM conversations WHERE user1_id = ? AND user2_id = ?
	`, lo, hi)
	c, err := scanSQLiteConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find conversation")
	}
	return c, nil
}

// ListConversationsForUser retrieves a user's conversations, most recent first.
func (s *SQLiteStore) ListConversationsForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteConversationColumns+`
		FROM conversations
		WHERE user1_id = ? OR user2_id = ?
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		c, err := scanSQLiteConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// TouchConversation points the conversation at its newest message.
func (s *SQLiteStore) TouchConversation(ctx context.Context, conversationID, messageID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_id = ?, updated_at = ? WHERE id = ?
	`, messageID, time.Now().UTC(), conversationID)
	return errors.Wrap(err, "touch conversation")
}

// AppendMessage stores a message and touches its conversation atomically.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID, senderID, receiverID int64, content string) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin append")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, content, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, conversationID, senderID, receiverID, content, now)
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_id = ?, updated_at = ? WHERE id = ?
	`, id, now, conversationID); err != nil {
		return nil, errors.Wrap(err, "touch conversation")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit append")
	}

	return &models.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		IsRead:         false,
		CreatedAt:      now,
	}, nil
}

const sqliteMessageColumns = `id, conversation_id, sender_id, receiver_id, content, is_read, created_at`

func scanSQLiteMessage(row rowScanner) (*models.Message, error) {
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

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		m, err := scanSQLiteMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteMessageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanSQLiteMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get message")
	}
	return m, nil
}

// ListConversationMessages returns one conversation's messages, oldest first.
func (s *SQLiteStore) ListConversationMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT `+sqliteMessageColumns+`
		FROM messages WHERE conversation_id = ?
		ORDER BY id ASC
	`, conversationID)
	return msgs, errors.Wrap(err, "list conversation messages")
}

// ListMessagesForUser returns every message the user sent or received, oldest first.
func (s *SQLiteStore) ListMessagesForUser(ctx context.Context, userID int64) ([]models.Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT `+sqliteMessageColumns+`
		FROM messages WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID, userID)
	return msgs, errors.Wrap(err, "list user messages")
}

// MarkConversationRead marks the viewer's unread messages as read.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, conversationID, viewerID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE conversation_id = ? AND receiver_id = ? AND is_read = 0
		RETURNING id
	`, conversationID, viewerID)
	if err != nil {
		return nil, errors.Wrap(err, "mark conversation read")
	}
	defer rows.Close()

	marked := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		marked = append(marked, id)
	}
	return marked, rows.Err()
}

// CountUnreadMessages counts unread messages addressed to the user.
func (s *SQLiteStore) CountUnreadMessages(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = 0
	`, userID).Scan(&count)
	return count, errors.Wrap(err, "count unread messages")
}

// CountUnreadInConversation counts the viewer's unread messages in one conversation.
func (s *SQLiteStore) CountUnreadInConversation(ctx context.Context, conversationID, viewerID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = ? AND receiver_id = ? AND is_read = 0
	`, conversationID, viewerID).Scan(&count)
	return count, errors.Wrap(err, "count unread in conversation")
}

func insertSQLiteNotification(ctx context.Context, exec interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, n *models.Notification) error {
	prepareNotification(n)
	data, err := json.Marshal(n.Data)
	if err != nil {
		return errors.Wrap(err, "encode notification data")
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, data, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID.String(), n.UserID, n.Title, n.Message, string(n.Type), string(data), n.IsRead, n.CreatedAt)
	return errors.Wrap(err, "insert notification")
}

// CreateNotification stores one notification.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return insertSQLiteNotification(ctx, s.db, n)
}

// CreateNotifications stores a batch of notifications in one transaction.
func (s *SQLiteStore) CreateNotifications(ctx context.Context, ns []*models.Notification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin bulk notifications")
	}
	defer tx.Rollback()

	for _, n := range ns {
		if err := insertSQLiteNotification(ctx, tx, n); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "commit bulk notifications")
}

// ListNotifications returns a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID int64, skip, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, data, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, skip)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var idStr, typ, data string
		err := rows.Scan(
			&idStr,
			&n.UserID,
			&n.Title,
			&n.Message,
			&typ,
			&data,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		n.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, errors.Wrap(err, "parse notification id")
		}
		n.Type = models.NotificationType(typ)
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			n.Data = map[string]any{}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountUnreadNotifications counts a user's unread notifications.
func (s *SQLiteStore) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0
	`, userID).Scan(&count)
	return count, errors.Wrap(err, "count unread notifications")
}

// MarkNotificationRead marks one of the user's notifications as read.
// It reports false when the notification does not belong to the user.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?
	`, id.String(), userID)
	if err != nil {
		return false, errors.Wrap(err, "mark notification read")
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkAllNotificationsRead marks every unread notification of the user as read.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0
	`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "mark all notifications read")
	}
	return res.RowsAffected()
}

// DeleteNotification removes one of the user's notifications.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE id = ? AND user_id = ?
	`, id.String(), userID)
	if err != nil {
		return false, errors.Wrap(err, "delete notification")
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
