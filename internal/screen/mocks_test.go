package screen_test

import (
	"context"
	"fmt"
	"sync"

	"complaintdesk/backend/internal/complaint"
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
	return m.Called(ctx, complaintID, field, value).Error(0)
}

func (m *MockStorage) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockStorage) SaveUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockStorage) Close() error {
	return m.Called().Error(0)
}

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

// MockSession records what the hub's controller pushes into it.
type MockSession struct {
	id, userID string
	actions    chan models.FeedbackAction

	mu      sync.Mutex
	renders [][]models.Complaint
	notices []models.Notice
	running bool
	closed  bool
}

func newMockSession(id, userID string) *MockSession {
	return &MockSession{id: id, userID: userID, actions: make(chan models.FeedbackAction)}
}

func (s *MockSession) GetSessionID() string                  { return s.id }
func (s *MockSession) GetUserID() string                     { return s.userID }
func (s *MockSession) View() complaint.View                  { return s }
func (s *MockSession) Actions() <-chan models.FeedbackAction { return s.actions }

func (s *MockSession) Run() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *MockSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *MockSession) Render(list []models.Complaint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders = append(s.renders, list)
}

func (s *MockSession) Notify(n models.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

func (s *MockSession) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *MockSession) RenderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.renders)
}

func (s *MockSession) Notices() []models.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notice(nil), s.notices...)
}

type keyMessages struct{}

func (keyMessages) Format(_, key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	return key + ": " + fmt.Sprint(args...)
}
