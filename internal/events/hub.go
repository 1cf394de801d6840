// Package events broadcasts committed ledger events to websocket observers.
package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

// Envelope wraps a ledger event for the wire. Payload field order inside Data
// follows the event definitions and is part of the compatibility surface.
type Envelope struct {
	ID         string           `json:"id"`
	Type       domain.EventType `json:"type"`
	Collection domain.Address   `json:"collection,omitempty"`
	Data       any              `json:"data"`
	Timestamp  time.Time        `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans committed events out to every connected observer. Slow consumers
// are dropped rather than allowed to stall the broadcast.
type Hub struct {
	logger   *slog.Logger
	clock    domain.Clock
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub builds an event hub.
func NewHub(logger *slog.Logger, clock domain.Clock) *Hub {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Hub{
		logger: logger,
		clock:  clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Emit implements domain.Emitter.
func (h *Hub) Emit(evt domain.Event) {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       evt.Type,
		Collection: evt.Collection,
		Data:       evt.Data,
		Timestamp:  h.clock(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to marshal event", "type", evt.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// Handler upgrades the request to a websocket and streams events until the
// peer disconnects.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop discards inbound frames; its only job is detecting disconnects.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
