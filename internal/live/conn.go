package live

import (
	"errors"
	"sync"

	"github.com/Friiyous/reseau-social/internal/ids"
)

// ErrClosed is returned when writing to a closed connection.
var ErrClosed = errors.New("live connection closed")

// Transport is the duplex channel underneath a Conn.
type Transport interface {
	WriteJSON(v any) error
	Close() error
}

// Conn is one open live channel owned by a user. Writes are serialised;
// the transport allows a single concurrent writer.
type Conn struct {
	ID     string
	UserID int64

	mu        sync.Mutex
	transport Transport
	closed    bool
}

// NewConn wraps transport for userID with a fresh connection id.
func NewConn(userID int64, transport Transport) *Conn {
	return &Conn{
		ID:        ids.NewConnID(),
		UserID:    userID,
		transport: transport,
	}
}

// Send writes v as one JSON frame.
func (c *Conn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.transport.WriteJSON(v)
}

// Close closes the transport once. Later calls are no-ops.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.transport.Close()
}
