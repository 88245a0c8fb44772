package complaint_test

import (
	"context"
	"fmt"
	"sync"

	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserProfile(ctx context.Context, userID string) (models.Fields, error) {
	args := m.Called(ctx, userID)
	f, _ := args.Get(0).(models.Fields)
	return f, args.Error(1)
}

func (m *MockStorage) SubscribeComplaints(ctx context.Context) (storage.Subscription, error) {
	args := m.Called(ctx)
	sub, _ := args.Get(0).(storage.Subscription)
	return sub, args.Error(1)
}

func (m *MockStorage) SetComplaintField(ctx context.Context, complaintID, field, value string) error {
	args := m.Called(ctx, complaintID, field, value)
	return args.Error(0)
}

func (m *MockStorage) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) SaveUser(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	return m.Called().Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) FeedbackPosted(ctx context.Context, c models.Complaint, feedback string) error {
	args := m.Called(ctx, c, feedback)
	return args.Error(0)
}

// fakeSubscription hands out events pushed by the test.
type fakeSubscription struct {
	events chan models.ComplaintEvent
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{events: make(chan models.ComplaintEvent, 8)}
}

func (s *fakeSubscription) Events() <-chan models.ComplaintEvent { return s.events }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	})
	return nil
}

func (s *fakeSubscription) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// recordingView stores everything the controller pushes.
type recordingView struct {
	mu      sync.Mutex
	renders [][]models.Complaint
	notices []models.Notice
}

func (v *recordingView) Render(complaints []models.Complaint) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, complaints)
}

func (v *recordingView) Notify(n models.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
}

func (v *recordingView) Renders() [][]models.Complaint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([][]models.Complaint(nil), v.renders...)
}

func (v *recordingView) Notices() []models.Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Notice(nil), v.notices...)
}

func (v *recordingView) LastIDs() []string {
	r := v.Renders()
	if len(r) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r[len(r)-1]))
	for _, c := range r[len(r)-1] {
		ids = append(ids, c.ID)
	}
	return ids
}

// keyMessages echoes the key so assertions do not depend on a catalog.
type keyMessages struct{}

func (keyMessages) Format(_, key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	return key + ": " + fmt.Sprint(args...)
}

func doc(id, text, ts, dept string) models.Document {
	f := models.Fields{"text": text, "timestamp": ts}
	if dept != "" {
		f["department"] = dept
	}
	return models.Document{ID: id, Fields: f}
}
