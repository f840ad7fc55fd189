package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// envelope is the wire format for one event.
type envelope struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub broadcasts events to all connected WebSocket clients. It is both a
// Notifier and an http.Handler (the /ws endpoint).
type Hub struct {
	mu     sync.RWMutex
	conns  map[*websocket.Conn]struct{}
	logger *slog.Logger
	now    func() time.Time
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
		now:    time.Now,
	}
}

// Compile-time interface checks.
var (
	_ Notifier     = (*Hub)(nil)
	_ http.Handler = (*Hub)(nil)
)

// Emit implements Notifier. Delivery is best-effort: a slow or dead
// client is dropped, never waited on.
func (h *Hub) Emit(event string, payload any) {
	data, err := json.Marshal(envelope{
		Event:     event,
		Payload:   payload,
		Timestamp: h.now(),
	})
	if err != nil {
		h.logger.Warn("notify: marshal event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.drop(c)
		}
	}
}

// ServeHTTP accepts a WebSocket connection and keeps it registered until
// the client disconnects. Clients only listen; inbound frames are drained
// and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("notify: websocket accept", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	defer h.drop(conn)

	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

// Listeners returns the number of connected clients.
func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		h.mu.Unlock()
		_ = c.Close(websocket.StatusNormalClosure, "")
		return
	}
	h.mu.Unlock()
}
