package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"meditimer/internal/timer"
)

// clientBuffer is how many messages a slow client may lag before messages
// are dropped for it.
const clientBuffer = 32

// Message is what the event stream sends.
type Message struct {
	Type  string       `json:"type"` // "state", "update", "completed"
	Event timer.Event  `json:"event,omitempty"`
	State *outputTimer `json:"state,omitempty"`
}

type client struct {
	send chan Message
}

// Hub broadcasts timer notifications to connected WebSocket clients. It
// implements timer.Sink and never blocks the engine.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

// Update implements timer.Sink.
func (h *Hub) Update(s timer.Snapshot) {
	out := newOutputTimer(s, time.Now())
	h.broadcast(Message{Type: "update", Event: s.Event, State: &out})
}

// Completed implements timer.Sink.
func (h *Hub) Completed() {
	h.broadcast(Message{Type: "completed"})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("events: client lagging, dropping message", "type", msg.Type)
		}
	}
}

func (h *Hub) register() *client {
	c := &client{send: make(chan Message, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// HandleEvents upgrades to WebSocket, sends the current state and then
// streams every notification until the client goes away.
func (h *Hub) HandleEvents(engine Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		websocket.Handler(func(conn *websocket.Conn) {
			h.serveWS(conn, engine)
		}).ServeHTTP(w, r)
	}
}

func (h *Hub) serveWS(conn *websocket.Conn, engine Controller) {
	c := h.register()
	defer h.unregister(c)

	state := newOutputTimer(engine.Snapshot(), time.Now())
	if err := websocket.JSON.Send(conn, Message{Type: "state", State: &state}); err != nil {
		return
	}
	h.logger.Info("events: connection opened", "remote", conn.Request().RemoteAddr)

	// Inbound frames are ignored; reading only detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var discard string
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			h.logger.Debug("events: connection closed")
			return
		case msg := <-c.send:
			if err := websocket.JSON.Send(conn, msg); err != nil {
				h.logger.Debug("events: send failed", "error", err)
				return
			}
		}
	}
}
