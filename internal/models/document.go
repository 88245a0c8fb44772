package models

// Fields is the schemaless field set of one stored document.
type Fields map[string]string

// Document is one entry of a collection snapshot.
type Document struct {
	ID     string
	Fields Fields
}

// Snapshot is a full point-in-time copy of the complaints collection,
// ordered by document id ascending.
type Snapshot []Document

// ComplaintEvent is one delivery of the live complaints subscription.
// Exactly one of Snapshot or Err is meaningful.
type ComplaintEvent struct {
	Snapshot Snapshot
	Err      error
}
