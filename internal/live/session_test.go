package live

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Friiyous/reseau-social/internal/models"
)

type liveServer struct {
	hub    *Hub
	srv    *httptest.Server
	closed chan int64
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	ls := &liveServer{
		hub:    NewHub(NewRegistry(), zerolog.Nop()),
		closed: make(chan int64, 16),
	}
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		ls.hub.ServeWS(w, r, userID)
		ls.closed <- userID
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *liveServer) dial(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ls.srv.URL, "http") + "/?user=" + strconv.FormatInt(userID, 10)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func (ls *liveServer) waitRegistered(t *testing.T, userID int64, notID string) *Conn {
	t.Helper()
	var conn *Conn
	require.Eventually(t, func() bool {
		conn = ls.hub.Registry().Lookup(userID)
		return conn != nil && conn.ID != notID
	}, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]any
	require.NoError(t, ws.ReadJSON(&ev))
	return ev
}

func TestSessionRelaysMessage(t *testing.T) {
	ls := newLiveServer(t)
	alice := ls.dial(t, 1)
	bob := ls.dial(t, 2)
	ls.waitRegistered(t, 1, "")
	ls.waitRegistered(t, 2, "")

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":         "message",
		"recipient_id": 2,
		"data":         map[string]any{"content": "hello"},
	}))

	ev := readEvent(t, bob)
	assert.Equal(t, models.EventNewMessage, ev["type"])
	assert.Equal(t, map[string]any{"content": "hello"}, ev["data"])
}

func TestSessionSurvivesMalformedEnvelope(t *testing.T) {
	ls := newLiveServer(t)
	alice := ls.dial(t, 1)
	bob := ls.dial(t, 2)
	ls.waitRegistered(t, 1, "")
	ls.waitRegistered(t, 2, "")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"message"}`)))
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))
	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":         "typing",
		"recipient_id": 2,
		"is_typing":    true,
	}))

	ev := readEvent(t, bob)
	assert.Equal(t, models.EventTypingStatus, ev["type"])
	assert.Equal(t, float64(1), ev["sender_id"])
	assert.True(t, ls.hub.Online(1))
}

func TestSessionReconnectKeepsNewChannel(t *testing.T) {
	ls := newLiveServer(t)

	first := ls.dial(t, 7)
	c1 := ls.waitRegistered(t, 7, "")

	second := ls.dial(t, 7)
	c2 := ls.waitRegistered(t, 7, c1.ID)
	assert.NotEqual(t, c1.ID, c2.ID)

	// The superseded session ends and unregisters with the stale handle.
	_ = first.Close()
	select {
	case userID := <-ls.closed:
		assert.Equal(t, int64(7), userID)
	case <-time.After(2 * time.Second):
		t.Fatal("first session never ended")
	}

	assert.Same(t, c2, ls.hub.Registry().Lookup(7))
	assert.True(t, ls.hub.Deliver(7, models.MessageReadEvent{Type: models.EventMessageRead, MessageID: 3}))

	ev := readEvent(t, second)
	assert.Equal(t, models.EventMessageRead, ev["type"])
	assert.Equal(t, float64(3), ev["message_id"])
}

func TestSessionUnregistersOnDisconnect(t *testing.T) {
	ls := newLiveServer(t)
	ws := ls.dial(t, 9)
	ls.waitRegistered(t, 9, "")

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	select {
	case <-ls.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session never ended")
	}
	assert.False(t, ls.hub.Online(9))
	assert.False(t, ls.hub.Deliver(9, models.TypingStatusEvent{Type: models.EventTypingStatus}))
}

func TestCloseAllSendsNormalClose(t *testing.T) {
	ls := newLiveServer(t)
	ws := ls.dial(t, 8)
	ls.waitRegistered(t, 8, "")

	assert.Equal(t, 1, ls.hub.CloseAll())

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	select {
	case userID := <-ls.closed:
		assert.Equal(t, int64(8), userID)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
	assert.False(t, ls.hub.Online(8))
}
