package poro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one frame pushed by the server on the live channel.
type Event struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// Decode unmarshals the full frame into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Raw, v)
}

// LiveConn is an open live channel.
type LiveConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Dial opens the caller's live channel. Opening a second one closes the
// first on the server side.
func (c *Client) Dial(ctx context.Context) (*LiveConn, error) {
	u, err := url.Parse(c.BaseURL + "/api/v1/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.ToLower(http.StatusText(resp.StatusCode))}
		}
		return nil, err
	}
	return &LiveConn{ws: ws}, nil
}

// Next blocks until the server pushes a frame.
func (l *LiveConn) Next() (*Event, error) {
	_, raw, err := l.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	ev.Raw = raw
	return &ev, nil
}

func (l *LiveConn) send(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ws.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return l.ws.WriteJSON(v)
}

// Typing tells recipientID whether the caller is typing.
func (l *LiveConn) Typing(recipientID int64, isTyping bool) error {
	return l.send(map[string]interface{}{
		"type":         "typing",
		"recipient_id": recipientID,
		"is_typing":    isTyping,
	})
}

// ReadReceipt tells senderID that the caller read messageID.
func (l *LiveConn) ReadReceipt(senderID, messageID int64) error {
	return l.send(map[string]interface{}{
		"type":       "read_receipt",
		"sender_id":  senderID,
		"message_id": messageID,
	})
}

// Relay forwards an arbitrary payload to recipientID as a new_message frame.
// It does not store anything; use Client.Send for durable messages.
func (l *LiveConn) Relay(recipientID int64, data interface{}) error {
	return l.send(map[string]interface{}{
		"type":         "message",
		"recipient_id": recipientID,
		"data":         data,
	})
}

// Close closes the live channel.
func (l *LiveConn) Close() error {
	l.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = l.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	l.mu.Unlock()
	return l.ws.Close()
}
