package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Friiyous/reseau-social/internal/metrics"
)

const (
	// Time allowed to write one frame to the peer.
	writeWait = 10 * time.Second

	// Largest inbound frame accepted.
	maxEnvelopeSize = 16 * 1024
)

// Callers authenticate before upgrading, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsTransport adapts a websocket connection to Transport.
type wsTransport struct {
	ws *websocket.Conn
}

func (t wsTransport) WriteJSON(v any) error {
	if err := t.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return t.ws.WriteJSON(v)
}

func (t wsTransport) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return t.ws.Close()
}

// ServeWS upgrades the request to a live channel for userID and runs its
// receive loop until the peer disconnects. A previous channel of the same
// user is closed when this one registers.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug().Err(err).Int64("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	conn := NewConn(userID, wsTransport{ws: ws})
	logger := h.logger.With().Int64("user_id", userID).Str("conn_id", conn.ID).Logger()

	if replaced := h.registry.Register(userID, conn); replaced != nil {
		logger.Debug().Str("replaced_conn_id", replaced.ID).Msg("closing superseded live channel")
		_ = replaced.Close()
	}
	logger.Info().Msg("live channel opened")

	defer func() {
		h.registry.Unregister(userID, conn)
		_ = conn.Close()
		logger.Info().Msg("live channel closed")
	}()

	ws.SetReadLimit(maxEnvelopeSize)
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Debug().Err(err).Msg("live channel dropped")
			}
			return
		}

		env, err := DecodeEnvelope(raw)
		if err != nil {
			metrics.LiveEvents.WithLabelValues("inbound", "malformed").Inc()
			logger.Debug().Err(err).Msg("dropping malformed envelope")
			continue
		}
		h.Dispatch(userID, env)
	}
}
