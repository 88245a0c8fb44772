package telegram_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
)

// fakeBot records outgoing calls and hands out increasing message ids.
// When gate is set every Send waits for it to be closed.
type fakeBot struct {
	gate chan struct{}

	mu      sync.Mutex
	nextID  int
	sent    []string
	deleted []int
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		b.nextID++
		b.sent = append(b.sent, m.Text)
		return tgbotapi.Message{MessageID: b.nextID, Text: m.Text}, nil
	case tgbotapi.EditMessageTextConfig:
		b.sent = append(b.sent, fmt.Sprintf("edit %d: %s", m.MessageID, m.Text))
		return tgbotapi.Message{MessageID: m.MessageID, Text: m.Text}, nil
	}
	return tgbotapi.Message{}, fmt.Errorf("unexpected %T", c)
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
		b.deleted = append(b.deleted, d.MessageID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (b *fakeBot) StopReceivingUpdates() {}

func (b *fakeBot) Sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sent...)
}

func (b *fakeBot) Deleted() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.deleted...)
}

// LastContaining returns the newest sent text containing substr.
func (b *fakeBot) LastContaining(substr string) (string, bool) {
	sent := b.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if strings.Contains(sent[i], substr) {
			return sent[i], true
		}
	}
	return "", false
}

type MockTokenParser struct {
	mock.Mock
}

func (m *MockTokenParser) ParseToken(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

type keyMessages struct{}

func (keyMessages) GetString(_, key string) string { return key }

func (keyMessages) Format(_, key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	return key + ": " + fmt.Sprint(args...)
}

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

func (m *MockStorage) Close() error { return m.Called().Error(0) }

type fakeSubscription struct {
	events chan models.ComplaintEvent
	once   sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{events: make(chan models.ComplaintEvent, 8)}
}

func (s *fakeSubscription) Events() <-chan models.ComplaintEvent { return s.events }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.events) })
	return nil
}

func command(chatID int64, text string) tgbotapi.Update {
	n := strings.Index(text, " ")
	if n < 0 {
		n = len(text)
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}}
}

func replyTo(chatID int64, messageID int, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:           &tgbotapi.Chat{ID: chatID},
		Text:           text,
		ReplyToMessage: &tgbotapi.Message{MessageID: messageID},
	}}
}
