package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hostwatch/hostwatch/server/internal/hub"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds frames read from the client; none are expected.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades requests to WebSocket and relays hub samples to them.
type Handler struct {
	hub *hub.Hub
}

// New creates a Handler that subscribes each connection to h.
func New(h *hub.Hub) *Handler {
	return &Handler{hub: h}
}

// ServeHTTP upgrades the connection and relays samples until the connection
// closes. It blocks for the lifetime of the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		sub:  h.hub.Subscribe(),
		gone: make(chan struct{}),
	}
	slog.Debug("ws: client subscribed", "conn", c.id, "remote", r.RemoteAddr)

	go c.readPump()
	reason := c.relay()

	c.sub.Close()
	slog.Debug("ws: client closed", "conn", c.id, "reason", reason)
}

// Count returns the number of live subscriptions on the underlying hub.
func (h *Handler) Count() int {
	return h.hub.Count()
}

// client is one connected peer.
type client struct {
	id   string
	conn *websocket.Conn
	sub  *hub.Subscription
	gone chan struct{} // closed by readPump when the peer goes away
}

// relay forwards samples to the peer and sends periodic pings. It returns a
// short description of why the connection ended.
func (c *client) relay() string {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	slog.Debug("ws: client relaying", "conn", c.id)

	for {
		select {
		case <-c.sub.Ready():
			sample, ok := c.sub.TryRecv()
			if !ok {
				continue
			}
			msg, err := json.Marshal(sample)
			if err != nil {
				return "encode: " + err.Error()
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return "write: " + err.Error()
			}

		case <-c.sub.Done():
			// Hub is shutting down.
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			c.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return "hub closed"

		case <-c.gone:
			return "peer disconnected"

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return "ping: " + err.Error()
			}
		}
	}
}

// readPump reads frames to process control messages (pong, close) and detect
// disconnects. Data frames from the client are discarded.
func (c *client) readPump() {
	defer close(c.gone)
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
