// Package poro provides a client for the Poro messaging API.
package poro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a Poro API client authenticated with a bearer token.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new Poro client.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("poro error %d: %s", e.Status, e.Message)
}

// do performs a request and decodes the JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Profile is a user's public directory entry.
type Profile struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	District    string `json:"district,omitempty"`
	Exists      bool   `json:"exists"`
	Online      bool   `json:"online"`
}

// Message is a direct message with both participants' profiles.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Content        string    `json:"content"`
	SenderID       int64     `json:"sender_id"`
	ReceiverID     int64     `json:"receiver_id"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
	Sender         Profile   `json:"sender"`
	Receiver       Profile   `json:"receiver"`
}

// Conversation is an inbox entry.
type Conversation struct {
	ID          int64     `json:"id"`
	User1ID     int64     `json:"user1_id"`
	User2ID     int64     `json:"user2_id"`
	OtherUser   Profile   `json:"other_user"`
	LastMessage *Message  `json:"last_message"`
	UnreadCount int64     `json:"unread_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConversationDetail is a conversation with its history.
type ConversationDetail struct {
	Conversation
	Messages   []Message `json:"messages"`
	MarkedRead int64     `json:"marked_read"`
}

// Notification is a per-user notification.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    int64                  `json:"user_id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

type unreadCount struct {
	UnreadCount int64 `json:"unread_count"`
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var resp Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Who returns another user's profile.
func (c *Client) Who(ctx context.Context, userID int64) (*Profile, error) {
	var resp Profile
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", userID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Send sends a direct message to receiverID.
func (c *Client) Send(ctx context.Context, receiverID int64, content string) (*Message, error) {
	req := map[string]interface{}{"receiver_id": receiverID, "content": content}
	var resp Message
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Conversations lists the caller's inbox, most recent first.
func (c *Client) Conversations(ctx context.Context, limit, offset int) ([]Conversation, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprint(offset))
	}
	path := "/api/v1/conversations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// Open fetches a conversation and marks the caller's messages in it read.
func (c *Client) Open(ctx context.Context, conversationID int64) (*ConversationDetail, error) {
	var resp ConversationDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d", conversationID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkRead marks a conversation read and returns how many messages changed.
func (c *Client) MarkRead(ctx context.Context, conversationID int64) (int64, error) {
	var resp struct {
		Marked int64 `json:"marked"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/read", conversationID), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Marked, nil
}

// UnreadMessages returns the caller's unread message count.
func (c *Client) UnreadMessages(ctx context.Context) (int64, error) {
	var resp unreadCount
	if err := c.do(ctx, http.MethodGet, "/api/v1/messages/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

// Notifications returns a page of the caller's notifications.
func (c *Client) Notifications(ctx context.Context, skip, limit int) ([]Notification, error) {
	path := fmt.Sprintf("/api/v1/notifications?skip=%d", skip)
	if limit > 0 {
		path += fmt.Sprintf("&limit=%d", limit)
	}
	var resp struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// UnreadNotifications returns the caller's unread notification count.
func (c *Client) UnreadNotifications(ctx context.Context) (int64, error) {
	var resp unreadCount
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/notifications/mark-read/"+url.PathEscape(id), nil, nil)
}

// MarkAllNotificationsRead marks every notification read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/notifications/mark-all-read", nil, nil)
}

// DeleteNotification deletes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notifications/"+url.PathEscape(id), nil, nil)
}

// SendTestNotification asks the server to notify the caller.
func (c *Client) SendTestNotification(ctx context.Context) (*Notification, error) {
	var resp Notification
	if err := c.do(ctx, http.MethodPost, "/api/v1/notifications/system/test", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status          string                 `json:"status"`
	Version         string                 `json:"version"`
	Checks          map[string]interface{} `json:"checks"`
	LiveConnections int                    `json:"live_connections"`
	Timestamp       string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
