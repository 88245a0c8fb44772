package handler

import (
	"context"
	"net/http"
	"time"

	"complaintdesk/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "complaintdesk",
		"time":     time.Now().Unix(),
		"sessions": h.Hub.SessionCount(),
	})
}

// Ready reports 503 while the store is unreachable.
func (h *Handler) Ready(c *gin.Context) {
	if p, ok := h.Storage.(storage.Pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
