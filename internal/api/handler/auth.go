package handler

import (
	"net/http"

	"complaintdesk/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// RequireAuth resolves the signed-in user from a Bearer header, or from the
// "token" query parameter for browsers opening a WebSocket.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		userID, err := h.Auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CurrentUser returns the id set by RequireAuth.
func CurrentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
