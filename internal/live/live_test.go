package live

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Friiyous/reseau-social/internal/apperr"
	"github.com/Friiyous/reseau-social/internal/models"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	err    error
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.frames = append(f.frames, b)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) received(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, b := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		out = append(out, m)
	}
	return out
}

func connect(reg *Registry, userID int64) (*Conn, *fakeTransport) {
	tr := &fakeTransport{}
	c := NewConn(userID, tr)
	reg.Register(userID, c)
	return c, tr
}

func TestRegistryLastConnectWins(t *testing.T) {
	reg := NewRegistry()
	c1 := NewConn(1, &fakeTransport{})
	c2 := NewConn(1, &fakeTransport{})
	require.NotEqual(t, c1.ID, c2.ID)

	assert.Nil(t, reg.Register(1, c1))
	assert.Same(t, c1, reg.Register(1, c2))
	assert.Same(t, c2, reg.Lookup(1))
	assert.Equal(t, 1, reg.Count())

	// The stale connection closing must not evict the reconnect.
	assert.False(t, reg.Unregister(1, c1))
	assert.Same(t, c2, reg.Lookup(1))
	assert.True(t, reg.Online(1))

	assert.True(t, reg.Unregister(1, c2))
	assert.False(t, reg.Online(1))
	assert.Zero(t, reg.Count())
}

func TestRegistryConcurrentConnectDisconnect(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := int64(i % 10)
			c := NewConn(userID, &fakeTransport{})
			reg.Register(userID, c)
			reg.Lookup(userID)
			reg.Unregister(userID, c)
		}(i)
	}
	wg.Wait()

	// Every connection unregistered itself or was replaced by one that did.
	assert.Zero(t, reg.Count())
}

func TestConnClosedRejectsSend(t *testing.T) {
	tr := &fakeTransport{}
	c := NewConn(1, tr)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, tr.closed)
	assert.ErrorIs(t, c.Send(map[string]string{"type": "x"}), ErrClosed)
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		malformed bool
		known     bool
	}{
		{"message", `{"type":"message","recipient_id":2,"data":{"content":"hi"}}`, false, true},
		{"message without recipient", `{"type":"message","data":{"content":"hi"}}`, true, false},
		{"message without data", `{"type":"message","recipient_id":2}`, true, false},
		{"message with null data", `{"type":"message","recipient_id":2,"data":null}`, true, false},
		{"typing", `{"type":"typing","recipient_id":2,"is_typing":false}`, false, true},
		{"typing without flag", `{"type":"typing","recipient_id":2}`, true, false},
		{"read receipt", `{"type":"read_receipt","sender_id":1,"message_id":9}`, false, true},
		{"read receipt without message", `{"type":"read_receipt","sender_id":1}`, true, false},
		{"unknown type", `{"type":"presence","foo":1}`, false, false},
		{"missing type", `{"recipient_id":2}`, true, false},
		{"wrong field type", `{"type":"typing","recipient_id":"two","is_typing":true}`, true, false},
		{"not json", `hello`, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.raw))
			if tt.malformed {
				assert.True(t, apperr.Is(err, apperr.CodeMalformed), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.known, env.Known())
		})
	}
}

func TestDispatchMessageFanOut(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg, zerolog.Nop())
	_, recipient := connect(reg, 2)
	_, bystander := connect(reg, 3)

	env, err := DecodeEnvelope([]byte(`{"type":"message","recipient_id":2,"data":{"id":7,"content":"hello"}}`))
	require.NoError(t, err)
	assert.True(t, hub.Dispatch(1, env))

	frames := recipient.received(t)
	require.Len(t, frames, 1)
	assert.Equal(t, models.EventNewMessage, frames[0]["type"])
	assert.Equal(t, map[string]any{"id": float64(7), "content": "hello"}, frames[0]["data"])
	assert.Empty(t, bystander.received(t))
}

func TestDispatchToOfflineRecipient(t *testing.T) {
	hub := NewHub(NewRegistry(), zerolog.Nop())

	env, err := DecodeEnvelope([]byte(`{"type":"message","recipient_id":2,"data":{"content":"hello"}}`))
	require.NoError(t, err)
	assert.False(t, hub.Dispatch(1, env))
}

func TestDispatchTypingAndReceipt(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg, zerolog.Nop())
	_, alice := connect(reg, 1)
	_, bob := connect(reg, 2)

	typing, err := DecodeEnvelope([]byte(`{"type":"typing","recipient_id":2,"is_typing":true}`))
	require.NoError(t, err)
	assert.True(t, hub.Dispatch(1, typing))

	frames := bob.received(t)
	require.Len(t, frames, 1)
	assert.Equal(t, models.EventTypingStatus, frames[0]["type"])
	assert.Equal(t, float64(1), frames[0]["sender_id"])
	assert.Equal(t, true, frames[0]["is_typing"])

	receipt, err := DecodeEnvelope([]byte(`{"type":"read_receipt","sender_id":1,"message_id":42}`))
	require.NoError(t, err)
	assert.True(t, hub.Dispatch(2, receipt))

	frames = alice.received(t)
	require.Len(t, frames, 1)
	assert.Equal(t, models.EventMessageRead, frames[0]["type"])
	assert.Equal(t, float64(42), frames[0]["message_id"])
}

func TestDispatchIgnoresUnknownType(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg, zerolog.Nop())
	_, tr := connect(reg, 2)

	env, err := DecodeEnvelope([]byte(`{"type":"presence","recipient_id":2}`))
	require.NoError(t, err)
	assert.False(t, hub.Dispatch(1, env))
	assert.Empty(t, tr.received(t))
}

func TestDeliverWriteFailure(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg, zerolog.Nop())
	reg.Register(5, NewConn(5, &fakeTransport{err: errors.New("broken pipe")}))

	assert.False(t, hub.Deliver(5, models.TypingStatusEvent{Type: models.EventTypingStatus}))
}

func TestRegistryCloseAll(t *testing.T) {
	reg := NewRegistry()
	c1, tr1 := connect(reg, 1)
	_, tr2 := connect(reg, 2)

	assert.Equal(t, 2, reg.CloseAll())
	assert.Zero(t, reg.Count())
	assert.True(t, tr1.closed)
	assert.True(t, tr2.closed)
	assert.ErrorIs(t, c1.Send(map[string]string{"type": "ping"}), ErrClosed)

	// The session's own cleanup after CloseAll is a no-op.
	assert.False(t, reg.Unregister(1, c1))
	assert.Zero(t, reg.CloseAll())
}
