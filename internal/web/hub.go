package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/observability"
	"github.com/lexiqai/media-transcriber/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBuffer     = 64
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// UI is served from a different origin during development
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Envelope is the server to client message
type Envelope struct {
	Type         string                `json:"type"`
	State        *session.State        `json:"state,omitempty"`
	Notification *session.Notification `json:"notification,omitempty"`
}

// Hub fans controller output out to every connected UI client
type Hub struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
}

var _ session.Observer = (*Hub)(nil)

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// PublishState broadcasts a state snapshot and remembers it for late joiners
func (h *Hub) PublishState(st session.State) {
	data, err := json.Marshal(Envelope{Type: "state", State: &st})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode state")
		return
	}
	h.mu.Lock()
	h.last = data
	h.mu.Unlock()
	h.broadcast(data)
}

// Notify broadcasts a notification
func (h *Hub) Notify(n session.Notification) {
	data, err := json.Marshal(Envelope{Type: "notification", Notification: &n})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode notification")
		return
	}
	h.broadcast(data)
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(data)
	}
}

func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: observability.WithCorrelationID(h.logger, ""),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	last := h.last
	h.mu.Unlock()

	if last != nil {
		c.enqueue(last)
	}
	observability.ClientConnected()
	c.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("UI client connected")
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	observability.ClientDisconnected()
	c.logger.Info().Msg("UI client disconnected")
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	logger zerolog.Logger
}

// enqueue must be called with the hub lock held so send is not closed underneath it
func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn().Msg("Client send buffer full, dropping message")
	}
}

// writePump owns all writes to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
