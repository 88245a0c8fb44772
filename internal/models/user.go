package models

import (
	"strconv"
	"strings"

	"complaintdesk/backend/internal/config"
)

// User is a staff member's stored profile document.
type User struct {
	ID             string `gorm:"primaryKey" json:"id" validate:"required"`
	Role           string `json:"role"`
	Department     string `json:"department"`
	Language       string `json:"language,omitempty" validate:"omitempty,len=2"`
	PushToken      string `json:"push_token,omitempty"`
	TelegramChatID int64  `gorm:"index" json:"telegram_chat_id,omitempty"`
}

// Fields renders the profile into its stored document shape, omitting empty values.
func (u User) Fields() Fields {
	f := Fields{}
	if u.Role != "" {
		f[config.FieldRole] = u.Role
	}
	if u.Department != "" {
		f[config.FieldDepartment] = u.Department
	}
	if u.Language != "" {
		f[config.FieldLanguage] = u.Language
	}
	if u.PushToken != "" {
		f[config.FieldPushToken] = u.PushToken
	}
	if u.TelegramChatID != 0 {
		f[config.FieldTelegramID] = strconv.FormatInt(u.TelegramChatID, 10)
	}
	return f
}

// AdminProfile is the visibility-relevant view of a user profile. It is derived
// on every screen entry and never persisted.
type AdminProfile struct {
	UserID     string
	Role       string
	Department Department
	Language   string
}

// NewAdminProfile normalizes a profile document: role is upper-cased and
// defaults to STAFF, department follows NormalizeDepartment.
func NewAdminProfile(userID string, f Fields, defaultLanguage string) AdminProfile {
	role := strings.ToUpper(strings.TrimSpace(f[config.FieldRole]))
	if role == "" {
		role = config.DefaultRole
	}
	lang := strings.ToLower(strings.TrimSpace(f[config.FieldLanguage]))
	if lang == "" {
		lang = defaultLanguage
	}
	return AdminProfile{
		UserID:     userID,
		Role:       role,
		Department: NormalizeDepartment(f[config.FieldDepartment]),
		Language:   lang,
	}
}

// IsGlobalAdmin reports whether the profile bypasses department filtering.
func (p AdminProfile) IsGlobalAdmin() bool {
	return p.Role == config.RoleAdmin
}

// CanSee applies the visibility rule to one complaint.
func (p AdminProfile) CanSee(c Complaint) bool {
	if p.IsGlobalAdmin() {
		return true
	}
	return strings.EqualFold(string(c.Department), string(p.Department))
}
