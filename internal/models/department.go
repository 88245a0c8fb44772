package models

import (
	"strings"

	"complaintdesk/backend/internal/config"
)

// Department is the routing category of a complaint, always in canonical upper case.
type Department string

const (
	DepartmentTicketing    Department = "TICKETING"
	DepartmentCatering     Department = "CATERING"
	DepartmentCleanliness  Department = "CLEANLINESS"
	DepartmentTrainDelay   Department = "TRAIN_DELAY"
	DepartmentLostAndFound Department = "LOST_AND_FOUND"
	DepartmentMaintenance  Department = "MAINTENANCE"
	DepartmentSecurity     Department = "SECURITY"
	DepartmentOther        Department = "OTHER"
)

var knownDepartments = func() map[string]struct{} {
	m := make(map[string]struct{}, len(config.Departments))
	for _, d := range config.Departments {
		m[d] = struct{}{}
	}
	return m
}()

// NormalizeDepartment trims and upper-cases raw and maps anything outside the
// closed set (including the empty string) to OTHER.
func NormalizeDepartment(raw string) Department {
	d := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := knownDepartments[d]; !ok {
		return DepartmentOther
	}
	return Department(d)
}

// IsKnownDepartment reports whether raw normalizes to itself rather than to the OTHER fallback.
func IsKnownDepartment(raw string) bool {
	_, ok := knownDepartments[strings.ToUpper(strings.TrimSpace(raw))]
	return ok
}
