package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"battle-relay/internal/relay"
)

// WSHandler serves the relay protocol over WebSocket for browser peers.
// One JSON envelope per text message; the core sees the same Peer contract
// as a TCP connection.
type WSHandler struct {
	log *slog.Logger
	mgr *relay.Manager
}

// NewWSHandler wires the /ws endpoint to the manager.
func NewWSHandler(log *slog.Logger, mgr *relay.Manager) *WSHandler {
	return &WSHandler{log: log, mgr: mgr}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}
	c.SetReadLimit(relay.MaxLineBytes)

	peer := &wsConn{id: uuid.NewString(), ws: c, addr: r.RemoteAddr}
	sess := h.mgr.Connect(peer)
	defer h.mgr.Disconnect(sess)

	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			// Includes normal closure and oversized frames; either way the
			// connection is done.
			break
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			continue
		}
		msg, derr := relay.Decode(data)
		if derr != nil {
			_ = peer.Send(relay.ErrorReply(derr.Error()))
			continue
		}
		h.mgr.Handle(sess, msg)
	}

	_ = c.Close(websocket.StatusNormalClosure, "bye")
}

// wsConn implements relay.Peer over a WebSocket connection.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	addr string
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) RemoteAddr() string { return c.addr }

// Send writes one envelope as a text message with a bounded deadline.
func (c *wsConn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, payload)
}
