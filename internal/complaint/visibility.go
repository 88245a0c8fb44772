package complaint

import (
	"log"
	"sort"

	"complaintdesk/backend/internal/models"
)

// ParseSnapshot parses every document of a snapshot, keeping store order.
// Malformed documents are dropped with a warning; they never fail the batch.
func ParseSnapshot(snap models.Snapshot) []models.Complaint {
	out := make([]models.Complaint, 0, len(snap))
	for _, doc := range snap {
		c, err := models.ParseComplaint(doc)
		if err != nil {
			log.Printf("WARNING: skipping complaint %q: %v", doc.ID, err)
			continue
		}
		out = append(out, c)
	}
	return out
}

// Visible filters complaints by the profile's department (unless it is a
// global admin) and sorts newest first. Equal timestamps keep input order.
// The input slice is not modified.
func Visible(profile models.AdminProfile, complaints []models.Complaint) []models.Complaint {
	out := make([]models.Complaint, 0, len(complaints))
	for _, c := range complaints {
		if profile.CanSee(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}
