package view

import "complaintdesk/backend/internal/models"

// Diff computes the keyed patch turning prev into next. Rows are matched by
// id; unchanged rows are not repeated. Order is nil when the id sequence did
// not change.
func Diff(prev, next []models.Row) models.Patch {
	var patch models.Patch

	old := make(map[string]models.Row, len(prev))
	for _, r := range prev {
		old[r.ID] = r
	}
	seen := make(map[string]struct{}, len(next))
	for _, r := range next {
		seen[r.ID] = struct{}{}
		if before, ok := old[r.ID]; !ok || before != r {
			patch.Upserted = append(patch.Upserted, r)
		}
	}
	for _, r := range prev {
		if _, ok := seen[r.ID]; !ok {
			patch.Removed = append(patch.Removed, r.ID)
		}
	}

	if !sameOrder(prev, next) {
		patch.Order = ids(next)
	}
	return patch
}

func sameOrder(a, b []models.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func ids(rows []models.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

// ListState remembers the last rendered rows of one screen. It is not safe for
// concurrent use.
type ListState struct {
	rows     []models.Row
	rendered bool
}

// Apply records next as the current list and returns the patch from the
// previous one. The first patch always carries the full order, even for an
// empty list, so the client can tell "loaded and empty" from "loading".
func (s *ListState) Apply(next []models.Row) models.Patch {
	patch := Diff(s.rows, next)
	if !s.rendered {
		patch.Order = ids(next)
		s.rendered = true
	}
	s.rows = append([]models.Row(nil), next...)
	return patch
}

// Rows returns the current rows.
func (s *ListState) Rows() []models.Row {
	return s.rows
}

// Row looks up a current row by complaint id.
func (s *ListState) Row(id string) (models.Row, bool) {
	for _, r := range s.rows {
		if r.ID == id {
			return r, true
		}
	}
	return models.Row{}, false
}
