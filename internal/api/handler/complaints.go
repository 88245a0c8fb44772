package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"complaintdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateComplaint stores a new complaint authored by the signed-in user.
// Every open screen picks it up through its subscription.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req models.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := models.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaint := &models.Complaint{
		ID:         uuid.NewString(),
		AuthorID:   CurrentUser(c),
		Text:       req.Text,
		Timestamp:  models.NewComplaintTimestamp(),
		Department: models.NormalizeDepartment(req.Department),
	}
	if err := h.Storage.SaveComplaint(c.Request.Context(), complaint); err != nil {
		log.Printf("ERROR: Failed to save complaint: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create complaint"})
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

// GetProfile returns the signed-in user's stored profile.
func (h *Handler) GetProfile(c *gin.Context) {
	userID := CurrentUser(c)
	fields, err := h.Storage.GetUserProfile(c.Request.Context(), userID)
	if errors.Is(err, models.ErrUserNotFound) {
		fields = models.Fields{}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	p := models.NewAdminProfile(userID, fields, "")
	c.JSON(http.StatusOK, gin.H{
		"user_id":    p.UserID,
		"role":       p.Role,
		"department": p.Department,
		"language":   p.Language,
	})
}
