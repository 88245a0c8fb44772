package view

// Bindings maps chat message ids to the complaint rows they display, for
// views that render each row as its own message. Not safe for concurrent use.
type Bindings struct {
	byMessage   map[int]string
	byComplaint map[string]int
}

func NewBindings() *Bindings {
	return &Bindings{
		byMessage:   make(map[int]string),
		byComplaint: make(map[string]int),
	}
}

// Bind attaches messageID to complaintID, replacing any earlier message of that row.
func (b *Bindings) Bind(complaintID string, messageID int) {
	if old, ok := b.byComplaint[complaintID]; ok {
		delete(b.byMessage, old)
	}
	b.byComplaint[complaintID] = messageID
	b.byMessage[messageID] = complaintID
}

// Unbind forgets the row and returns the message that displayed it.
func (b *Bindings) Unbind(complaintID string) (int, bool) {
	msgID, ok := b.byComplaint[complaintID]
	if !ok {
		return 0, false
	}
	delete(b.byComplaint, complaintID)
	delete(b.byMessage, msgID)
	return msgID, true
}

// Complaint resolves the row shown by messageID.
func (b *Bindings) Complaint(messageID int) (string, bool) {
	id, ok := b.byMessage[messageID]
	return id, ok
}

// Message returns the message currently showing complaintID.
func (b *Bindings) Message(complaintID string) (int, bool) {
	id, ok := b.byComplaint[complaintID]
	return id, ok
}

// Len is the number of bound rows.
func (b *Bindings) Len() int { return len(b.byComplaint) }

// Reset drops every binding and returns the message ids that were bound.
func (b *Bindings) Reset() []int {
	out := make([]int, 0, len(b.byMessage))
	for msgID := range b.byMessage {
		out = append(out, msgID)
	}
	b.byMessage = make(map[int]string)
	b.byComplaint = make(map[string]int)
	return out
}
