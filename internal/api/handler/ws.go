package handler

import (
	"net/http"

	"zawaj/backend/internal/chathub"
	"zawaj/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The CORS middleware does not cover upgrades; the token already binds
	// the session to a user.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated request and attaches the session
// to the hub. Notifications and approved messages arrive on it.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	uid := userID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Warn().Err(err).Str("user_id", uid).Msg("websocket upgrade failed")
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, uid, conn)
	if !h.Hub.Register(client) {
		_ = conn.Close()
		return
	}
	client.Run()
}
