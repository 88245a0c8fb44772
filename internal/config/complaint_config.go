package config

import "time"

const (
	// Roles
	RoleAdmin   = "ADMIN"
	DefaultRole = "STAFF"

	// Rendering
	DateLayout            = "02 Jan 2006, 15:04"
	NoFeedbackPlaceholder = "No feedback yet"

	// Document fields
	FieldAuthorID    = "authorId"
	FieldText        = "text"
	FieldTimestamp   = "timestamp"
	FieldComplaintID = "complaintId"
	FieldFeedback    = "feedback"
	FieldDepartment  = "department"
	FieldRole        = "role"
	FieldLanguage    = "language"
	FieldPushToken   = "pushToken"
	FieldTelegramID  = "telegramChatId"

	// Redis layout
	UsersKeyPrefix      = "users:"
	ComplaintsKeyPrefix = "complaints:"
	ComplaintsIndexKey  = "complaints"
	ComplaintsChannel   = "complaints:changed"

	PubSubHealthCheck   = 30 * time.Second
	PubSubRetryInterval = time.Second

	// Postgres LISTEN/NOTIFY channel
	ComplaintsNotifyChannel = "complaints_changed"

	// Screen
	ScreenEventBuffer = 16
	StoreOpTimeout    = 30 * time.Second
)

// Departments is the closed set complaints are routed by.
var Departments = []string{
	"TICKETING",
	"CATERING",
	"CLEANLINESS",
	"TRAIN_DELAY",
	"LOST_AND_FOUND",
	"MAINTENANCE",
	"SECURITY",
	"OTHER",
}
