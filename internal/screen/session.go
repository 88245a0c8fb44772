package screen

import (
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/models"
)

// Session is one open complaint screen (e.g. a WebSocket tab or a Telegram chat).
// It abstracts the transport so the hub can drive every screen the same way.
type Session interface {
	// GetSessionID identifies this screen instance; one user may hold several.
	GetSessionID() string
	// GetUserID returns the signed-in staff member the screen belongs to.
	GetUserID() string

	// View receives the controller's renders and notices. Implementations must
	// not block for long: they are called from the screen's controller loop.
	View() complaint.View
	// Actions delivers feedback submits typed on this screen.
	Actions() <-chan models.FeedbackAction

	// Run starts the transport pumps.
	Run()
	// Close shuts the transport down. It is called once the controller has stopped.
	Close()
}
