package live

import (
	"sync"

	"github.com/Friiyous/reseau-social/internal/metrics"
)

// Registry maps an online user to their single live channel.
// The last connection registered for a user wins.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]*Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]*Conn)}
}

// Register makes c the live channel of userID and returns the connection it
// replaced, if any.
func (r *Registry) Register(userID int64, c *Conn) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced := r.conns[userID]
	r.conns[userID] = c
	metrics.LiveConnections.Set(float64(len(r.conns)))
	return replaced
}

// Unregister removes userID's entry only if it still points at c, so a
// stale connection closing after a reconnect leaves the new one in place.
func (r *Registry) Unregister(userID int64, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; !ok || current != c {
		return false
	}
	delete(r.conns, userID)
	metrics.LiveConnections.Set(float64(len(r.conns)))
	return true
}

// Lookup returns userID's live channel or nil.
func (r *Registry) Lookup(userID int64) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[userID]
}

// Online reports whether userID holds a live channel.
func (r *Registry) Online(userID int64) bool {
	return r.Lookup(userID) != nil
}

// Count returns the number of registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes and removes every live channel. It returns how many were
// closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[int64]*Conn)
	metrics.LiveConnections.Set(0)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return len(conns)
}
