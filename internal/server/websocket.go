package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/minglehq/mingle/backend/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket authenticates the session token, upgrades the connection
// and starts the client pumps. Presence membership still requires the
// client to send a register event over the socket.
func (h *httpHandler) handleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
		return
	}
	if _, err := h.tokens.ValidateToken(token); err != nil {
		h.logger.Warn("websocket token rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := realtime.NewClient(conn)
	h.hub.Connect(client)

	go client.WritePump()
	go client.ReadPump(h.hub)
}
