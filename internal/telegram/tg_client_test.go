package telegram_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/screen"
	"complaintdesk/backend/internal/telegram"
	"complaintdesk/backend/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func complaintAt(id, text string, ts int64, feedback *string) models.Complaint {
	return models.Complaint{ID: id, Text: text, Timestamp: ts, Feedback: feedback}
}

func TestClient_RenderSendsEditsAndDeletes(t *testing.T) {
	bot := &fakeBot{}
	c := telegram.NewClient(42, "u1", bot, view.NewFormatter(time.UTC, ""), keyMessages{}, "en")
	c.Run()
	defer c.Close()

	c.Render([]models.Complaint{
		complaintAt("B", "late train", 200, nil),
		complaintAt("A", "cold tea", 100, nil),
	})
	require.Eventually(t, func() bool { return len(bot.Sent()) == 2 }, time.Second, 10*time.Millisecond)
	sent := bot.Sent()
	assert.True(t, strings.HasPrefix(sent[0], "📝 cold tea"), "oldest row goes first")
	assert.Contains(t, sent[1], "late train")
	assert.Contains(t, sent[1], "No feedback yet")

	fb := "Refunded"
	c.Render([]models.Complaint{complaintAt("A", "cold tea", 100, &fb)})
	require.Eventually(t, func() bool { return len(bot.Deleted()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{2}, bot.Deleted())
	require.Eventually(t, func() bool {
		_, ok := bot.LastContaining("edit 1:")
		return ok
	}, time.Second, 10*time.Millisecond)
	edit, _ := bot.LastContaining("edit 1:")
	assert.Contains(t, edit, "💬 Refunded")
}

func TestClient_EmptyListAndNotices(t *testing.T) {
	bot := &fakeBot{}
	c := telegram.NewClient(42, "u1", bot, view.NewFormatter(time.UTC, ""), keyMessages{}, "en")
	c.Run()
	defer c.Close()

	c.Render(nil)
	c.Notify(models.Notice{Message: "feedback_submitted", Severity: models.SeverityInfo})
	c.Notify(models.Notice{Message: "error_loading_complaints: x", Severity: models.SeverityError})

	require.Eventually(t, func() bool { return len(bot.Sent()) == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"empty_list", "✅ feedback_submitted", "⚠️ error_loading_complaints: x"}, bot.Sent())
}

func TestClient_SlowChatGetsLatestListAndEveryNotice(t *testing.T) {
	bot := &fakeBot{gate: make(chan struct{})}
	c := telegram.NewClient(42, "u1", bot, view.NewFormatter(time.UTC, ""), keyMessages{}, "en")
	c.Run()
	defer c.Close()

	for i := 0; i < 20; i++ {
		fb := fmt.Sprintf("v%d", i)
		c.Render([]models.Complaint{complaintAt("A", "cold tea", 100, &fb)})
	}
	c.Notify(models.Notice{Message: "feedback_submitted", Severity: models.SeverityInfo})
	for i := 0; i < 20; i++ {
		c.Notify(models.Notice{Message: fmt.Sprintf("error_%d", i), Severity: models.SeverityError})
	}
	close(bot.gate)

	require.Eventually(t, func() bool {
		_, ok := bot.LastContaining("error_19")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	row, ok := bot.LastContaining("💬")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(row, "💬 v19"), "last row shown: %q", row)
	_, ok = bot.LastContaining("✅ feedback_submitted")
	assert.True(t, ok)
	// one or two row writes depending on whether v0 was picked up before coalescing
	assert.GreaterOrEqual(t, len(bot.Sent()), 22)
	assert.LessOrEqual(t, len(bot.Sent()), 23)
}

type catalog map[string]string

func (c catalog) GetString(lang, key string) string {
	if v, ok := c[lang+"."+key]; ok {
		return v
	}
	return key
}

func TestClient_SetLanguageLocalizesRows(t *testing.T) {
	msgs := catalog{"uk.no_feedback_yet": "Відповіді ще немає", "uk.empty_list": "Скарг немає."}
	f := view.NewFormatter(time.UTC, "")
	f.Messages = msgs
	bot := &fakeBot{}
	c := telegram.NewClient(42, "u1", bot, f, msgs, "en")
	c.Run()
	defer c.Close()

	c.SetLanguage("uk")
	assert.Equal(t, "uk", c.Lang())

	c.Render(nil)
	require.Eventually(t, func() bool { return len(bot.Sent()) == 1 }, time.Second, 10*time.Millisecond)
	c.Render([]models.Complaint{complaintAt("A", "cold tea", 100, nil)})
	require.Eventually(t, func() bool { return len(bot.Sent()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Скарг немає.", bot.Sent()[0])
	assert.Contains(t, bot.Sent()[1], "💬 Відповіді ще немає")
}

func TestClient_ReplyResolvesBoundRow(t *testing.T) {
	bot := &fakeBot{}
	c := telegram.NewClient(42, "u1", bot, view.NewFormatter(time.UTC, ""), keyMessages{}, "en")
	c.Run()

	c.Render([]models.Complaint{complaintAt("A", "cold tea", 100, nil)})
	require.Eventually(t, func() bool { return len(bot.Sent()) == 1 }, time.Second, 10*time.Millisecond)

	got := make(chan models.FeedbackAction, 1)
	go func() { got <- <-c.Actions() }()
	assert.True(t, c.Reply(1, "  we are on it "))
	select {
	case a := <-got:
		assert.Equal(t, models.FeedbackAction{ComplaintID: "A", Text: "we are on it"}, a)
	case <-time.After(time.Second):
		t.Fatal("no action delivered")
	}

	assert.False(t, c.Reply(999, "hello"))

	c.Close()
	assert.Eventually(t, func() bool { return len(bot.Deleted()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestBotService_LoginReplyLogout(t *testing.T) {
	store := new(MockStorage)
	sub := newFakeSubscription()
	store.On("GetUserProfile", mock.Anything, "staff-1").Return(models.Fields{"department": "CATERING"}, nil)
	store.On("SubscribeComplaints", mock.Anything).Return(sub, nil)
	store.On("SetComplaintField", mock.Anything, "C1", "feedback", "Sorry about that").Return(nil)

	hub := screen.NewManagerService(store, keyMessages{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	parser := new(MockTokenParser)
	parser.On("ParseToken", "tok").Return("staff-1", nil)
	bot := &fakeBot{}
	svc := telegram.NewBotServiceWithAPI(bot, hub, parser, keyMessages{}, view.NewFormatter(time.UTC, ""), "en")

	svc.HandleUpdate(replyTo(42, 1, "hello"))
	assert.Equal(t, []string{"please_log_in"}, bot.Sent())

	sub.events <- models.ComplaintEvent{Snapshot: models.Snapshot{
		{ID: "C1", Fields: models.Fields{"text": "cold soup", "timestamp": "100", "department": "CATERING"}},
		{ID: "C2", Fields: models.Fields{"text": "gate closed", "timestamp": "200", "department": "SECURITY"}},
	}}
	svc.HandleUpdate(command(42, "/login tok"))
	require.Eventually(t, func() bool { return hub.HasSession("tg:42") }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := bot.LastContaining("cold soup")
		return ok
	}, time.Second, 10*time.Millisecond)
	_, leaked := bot.LastContaining("gate closed")
	assert.False(t, leaked)

	var rowMsgID int
	for i, text := range bot.Sent() {
		if strings.Contains(text, "cold soup") {
			rowMsgID = i + 1
		}
	}
	svc.HandleUpdate(replyTo(42, rowMsgID, "Sorry about that"))
	require.Eventually(t, func() bool {
		_, ok := bot.LastContaining("feedback_submitted")
		return ok
	}, time.Second, 10*time.Millisecond)
	store.AssertNumberOfCalls(t, "SetComplaintField", 1)

	svc.HandleUpdate(command(42, "/logout"))
	assert.Eventually(t, func() bool { return !hub.HasSession("tg:42") }, time.Second, 10*time.Millisecond)
	_, ok := bot.LastContaining("tg_logged_out")
	assert.True(t, ok)
}
