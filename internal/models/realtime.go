package models

// FeedbackAction is a submit from a view row.
type FeedbackAction struct {
	ComplaintID string `json:"complaint_id" validate:"required"`
	Text        string `json:"text"`
}

// Severity of a user-visible notice.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notice is the transient, non-blocking message shown to the user (a toast).
type Notice struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Row is one rendered complaint line.
type Row struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Date     string `json:"date"`
	Feedback string `json:"feedback"`
	// HasFeedback is false when Feedback holds the placeholder.
	HasFeedback bool `json:"has_feedback"`
	// Input is the feedback composer's initial content; always empty.
	Input string `json:"input"`
}

// Patch is the keyed difference between two rendered lists.
type Patch struct {
	Removed  []string `json:"removed"`
	Upserted []Row    `json:"upserted"`
	Order    []string `json:"order"`
}

// IsEmpty reports whether applying the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Removed) == 0 && len(p.Upserted) == 0 && p.Order == nil
}

// Frame types exchanged with websocket screen clients.
const (
	FrameRender         = "render"
	FrameNotice         = "notice"
	FrameSubmitFeedback = "submit_feedback"
)

// ScreenFrame is a server-to-client websocket message.
type ScreenFrame struct {
	Type   string  `json:"type"`
	Patch  *Patch  `json:"patch,omitempty"`
	Notice *Notice `json:"notice,omitempty"`
}

// ClientFrame is a client-to-server websocket message.
type ClientFrame struct {
	Type        string `json:"type"`
	ComplaintID string `json:"complaint_id"`
	Text        string `json:"text"`
}
