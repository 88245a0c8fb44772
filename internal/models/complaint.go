package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"complaintdesk/backend/internal/config"
)

// Complaint is one submitted grievance as shown on the admin screen.
type Complaint struct {
	ID         string     `json:"id"`
	AuthorID   string     `json:"author_id"`
	Text       string     `json:"text"`
	Timestamp  int64      `json:"timestamp"` // ms since epoch
	Department Department `json:"department"`
	Feedback   *string    `json:"feedback,omitempty"`
}

// ParseComplaint builds a Complaint from a stored document. The document key is
// the identifier. Text and a numeric timestamp are required; a missing or
// unknown department becomes OTHER.
func ParseComplaint(doc Document) (Complaint, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return Complaint{}, fmt.Errorf("%w: empty id", ErrMalformedRecord)
	}
	if doc.Fields == nil {
		return Complaint{}, fmt.Errorf("%w: %s has no fields", ErrMalformedRecord, doc.ID)
	}

	text, ok := doc.Fields[config.FieldText]
	if !ok {
		return Complaint{}, fmt.Errorf("%w: %s is missing %q", ErrMalformedRecord, doc.ID, config.FieldText)
	}
	rawTS, ok := doc.Fields[config.FieldTimestamp]
	if !ok {
		return Complaint{}, fmt.Errorf("%w: %s is missing %q", ErrMalformedRecord, doc.ID, config.FieldTimestamp)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(rawTS), 10, 64)
	if err != nil {
		return Complaint{}, fmt.Errorf("%w: %s has bad timestamp %q", ErrMalformedRecord, doc.ID, rawTS)
	}

	c := Complaint{
		ID:         doc.ID,
		AuthorID:   doc.Fields[config.FieldAuthorID],
		Text:       text,
		Timestamp:  ts,
		Department: NormalizeDepartment(doc.Fields[config.FieldDepartment]),
	}
	if fb, ok := doc.Fields[config.FieldFeedback]; ok && fb != "" {
		c.Feedback = &fb
	}
	return c, nil
}

// Fields renders the complaint back into its stored document shape.
func (c Complaint) Fields() Fields {
	f := Fields{
		config.FieldComplaintID: c.ID,
		config.FieldAuthorID:    c.AuthorID,
		config.FieldText:        c.Text,
		config.FieldTimestamp:   strconv.FormatInt(c.Timestamp, 10),
		config.FieldDepartment:  string(c.Department),
	}
	if c.Feedback != nil {
		f[config.FieldFeedback] = *c.Feedback
	}
	return f
}

// CreatedAt converts the millisecond timestamp to a time.Time.
func (c Complaint) CreatedAt() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// NewComplaintTimestamp returns the current time in the stored unit.
func NewComplaintTimestamp() int64 {
	return time.Now().UnixMilli()
}
