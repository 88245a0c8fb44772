// Package view holds the presentation pieces shared by every list screen:
// row formatting, keyed diffs between renders and submit normalization.
package view

import (
	"strings"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
)

// Catalog resolves localized texts by key.
type Catalog interface {
	GetString(lang, key string) string
}

const placeholderKey = "no_feedback_yet"

// Formatter turns complaints into display rows.
type Formatter struct {
	Location    *time.Location
	Placeholder string
	// Messages, when set, lets ForLanguage swap the placeholder.
	Messages Catalog
}

// NewFormatter returns a Formatter for loc. A nil loc means time.Local and an
// empty placeholder falls back to the default English text.
func NewFormatter(loc *time.Location, placeholder string) Formatter {
	if loc == nil {
		loc = time.Local
	}
	if placeholder == "" {
		placeholder = config.NoFeedbackPlaceholder
	}
	return Formatter{Location: loc, Placeholder: placeholder}
}

// ForLanguage returns a copy whose placeholder is in lang. Without a catalog,
// or when lang has no translation, the formatter is returned unchanged.
func (f Formatter) ForLanguage(lang string) Formatter {
	if f.Messages == nil || lang == "" {
		return f
	}
	if p := f.Messages.GetString(lang, placeholderKey); p != "" && p != placeholderKey {
		f.Placeholder = p
	}
	return f
}

// Row formats one complaint. The input composer always starts empty.
func (f Formatter) Row(c models.Complaint) models.Row {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	row := models.Row{
		ID:   c.ID,
		Text: c.Text,
		Date: c.CreatedAt().In(loc).Format(config.DateLayout),
	}
	if c.Feedback != nil && *c.Feedback != "" {
		row.Feedback = *c.Feedback
		row.HasFeedback = true
	} else {
		row.Feedback = f.Placeholder
	}
	return row
}

// Rows formats a list, keeping its order.
func (f Formatter) Rows(list []models.Complaint) []models.Row {
	rows := make([]models.Row, 0, len(list))
	for _, c := range list {
		rows = append(rows, f.Row(c))
	}
	return rows
}

// NormalizeFeedback trims what the user typed before it is submitted.
func NormalizeFeedback(raw string) string {
	return strings.TrimSpace(raw)
}
