// Package dashboard pushes live resource-mutation events to connected
// operators over a websocket, the server-side counterpart to
// coordinator/coordinator.go's outbound WSMessage envelope and send/ping
// loops (here adapted to a single process broadcasting, not a client
// dialing out to one).
package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Message is the envelope pushed to every connected client, mirroring the
// shape of coordinator.WSMessage (Type/Payload/Timestamp) without the
// bidirectional registration handshake a Coordinator client needs.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub fans out Messages to every connected websocket client, grounded on
// coordinator.Coordinator's send loop (a buffered outbound channel drained
// by one goroutine per connection) but inverted: many connections, one
// broadcaster.
type Hub struct {
	log      *logrus.Entry
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// NewHub constructs an empty Hub. CheckOrigin is permissive by default;
// callers embedding this behind an authenticated proxy may replace
// hub.upgrader.CheckOrigin before calling ServeWS.
func NewHub(log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and registers
// it as a broadcast recipient until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan Message, 16)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)

	return nil
}

// writeLoop drains c.send, mirroring Coordinator.senderLoop.
func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			h.log.WithError(err).Debug("dashboard: write failed, dropping client")
			h.remove(c)
			return
		}
	}
}

// readLoop discards client frames but detects disconnects, mirroring
// Coordinator.readLoop's role of noticing a dead connection.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast pushes a Message to every currently connected client,
// best-effort: a client whose send buffer is full is dropped rather than
// stalling the broadcaster, the same non-blocking delivery manager.Bus
// uses for in-process subscribers.
func (h *Hub) Broadcast(msgType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Warn("dashboard: failed to marshal broadcast payload")
		return
	}
	msg := Message{Type: msgType, Payload: body, Timestamp: time.Now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dashboard: client send buffer full, dropping connection")
			delete(h.clients, c)
			close(c.send)
		}
	}
}
