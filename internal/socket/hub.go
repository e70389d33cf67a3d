// server/internal/socket/hub.go
package socket

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub tracks the courier's open websocket connections (several tabs or
// devices may be listening) and fans intake progress events out to all
// of them.
type Hub struct {
	log *logrus.Logger

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[string]*websocket.Conn),
	}
}

// Register adds a connection under its own id.
func (h *Hub) Register(connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connID] = conn
	h.log.WithField("conn", connID).Debug("websocket client registered")
}

// Unregister removes a connection.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		h.log.WithField("conn", connID).Debug("websocket client unregistered")
	}
}

// Broadcast sends a message to every connected client. The write lock
// serializes the sends: gorilla/websocket allows at most one concurrent
// writer per connection. A dead connection is not fatal; it drops out of
// the map when its read loop ends.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID, conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.WithField("conn", connID).WithError(err).Warn("websocket send failed")
		}
	}
}
