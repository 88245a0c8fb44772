// Package handler exposes the complaint screens over HTTP: the WebSocket list
// view, complaint intake and health checks.
package handler

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/screen"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/view"
)

// Handler holds what the HTTP routes need.
type Handler struct {
	Hub            *screen.ManagerService
	Storage        storage.Storage
	Auth           *auth.Service
	Formatter      view.Formatter
	AllowedOrigins []string
}

func NewHandler(hub *screen.ManagerService, s storage.Storage, a *auth.Service, f view.Formatter, origins []string) *Handler {
	return &Handler{
		Hub:            hub,
		Storage:        s,
		Auth:           a,
		Formatter:      f,
		AllowedOrigins: origins,
	}
}
