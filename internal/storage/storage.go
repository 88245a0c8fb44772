// Package storage adapts concrete databases to the complaint document store the
// admin screen reads from and writes to.
package storage

import (
	"context"
	"fmt"
	"sort"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
)

// Storage is the remote complaint document store.
type Storage interface {
	// GetUserProfile is a one-shot read of users/<userID>.
	GetUserProfile(ctx context.Context, userID string) (models.Fields, error)
	// SubscribeComplaints opens a live subscription on the whole complaints
	// collection. A full snapshot is delivered right away and after every change.
	SubscribeComplaints(ctx context.Context) (Subscription, error)
	// SetComplaintField overwrites a single field of complaints/<complaintID>.
	SetComplaintField(ctx context.Context, complaintID, field, value string) error

	SaveComplaint(ctx context.Context, complaint *models.Complaint) error
	SaveUser(ctx context.Context, user *models.User) error

	Close() error
}

// Subscription is a live complaints listener. Close is idempotent and closes
// the Events channel once the delivery goroutine has stopped.
type Subscription interface {
	Events() <-chan models.ComplaintEvent
	Close() error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the backend selected by cfg.StoreBackend.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg)
	case config.BackendPostgres:
		return NewPostgresStore(cfg)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.StoreBackend)
	}
}

func sortSnapshot(s models.Snapshot) {
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}

// allowedComplaintField guards SetComplaintField against arbitrary column names.
func allowedComplaintField(field string) bool {
	switch field {
	case config.FieldFeedback, config.FieldText, config.FieldDepartment, config.FieldAuthorID, config.FieldTimestamp:
		return true
	}
	return false
}
