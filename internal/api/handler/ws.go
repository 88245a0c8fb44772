package handler

import (
	"log"
	"net/http"
	"strings"

	"complaintdesk/backend/internal/screen"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin allows any origin when none are configured.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeWebSocket opens a complaint screen for the signed-in user.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := CurrentUser(c)

	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ERROR: websocket upgrade for %s: %v", userID, err)
		return
	}

	client := screen.NewWebSocketClient(uuid.NewString(), userID, conn, h.Hub, h.Formatter)
	if !h.Hub.Register(client) {
		conn.Close()
	}
}
