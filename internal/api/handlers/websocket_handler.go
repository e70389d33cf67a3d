// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"net/http"

	"rl-express-api-server/internal/auth"
	"rl-express-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub       *socket.Hub
	jwtSecret []byte
	log       *logrus.Logger
}

func NewWebSocketHandler(hub *socket.Hub, jwtSecret []byte, log *logrus.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, jwtSecret: jwtSecret, log: log}
}

// Serve upgrades the connection and streams intake progress events. The
// session token is passed as a query parameter because browsers cannot
// set headers on websocket upgrades.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if _, err := auth.ParseJWT(h.jwtSecret, token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	connID := uuid.New().String()
	h.hub.Register(connID, conn)

	go func() {
		defer func() {
			h.hub.Unregister(connID)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
