package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const broadcastBuffer = 256

// Event is the envelope pushed to live-feed clients.
type Event struct {
	Type    string      `json:"type"`
	Action  string      `json:"action"`
	Actor   string      `json:"actor,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, broadcastBuffer),
		log:        log.Named("ws"),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			h.log.Debug("client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Attach hands conn to the hub. It gives up and returns false once ctx is
// done, since Run no longer receives at that point.
func (h *Hub) Attach(ctx context.Context, conn *websocket.Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) Detach(ctx context.Context, conn *websocket.Conn) {
	select {
	case h.Unregister <- conn:
	case <-ctx.Done():
	}
}

// Handler serves one live-feed connection until the client goes away or ctx
// is done. Incoming messages are read and discarded.
func (h *Hub) Handler(ctx context.Context) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		if !h.Attach(ctx, c) {
			return
		}
		defer h.Detach(ctx, c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// Publish queues an event for every connected client. It never blocks: when
// the buffer is full the event is dropped.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("encoding event", zap.String("action", event.Action), zap.Error(err))
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.log.Warn("live feed buffer full, dropping event", zap.String("action", event.Action))
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}
