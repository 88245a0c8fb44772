package telegram

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/view"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// op is one unit of work for the write pump: a render or a notice.
type op struct {
	render  bool
	list    []models.Complaint
	notice  models.Notice
	rawText string
}

// Client is a Telegram chat showing a complaint list. Each row is its own
// message; replying to a row submits feedback on that complaint.
//
// Pending work is an ordered queue that is never trimmed. A render that is
// still queued is replaced in place by a newer list.
type Client struct {
	ChatID    int64
	UserID    string
	Bot       BotAPI
	Formatter view.Formatter
	Messages  Messages
	Language  string

	wake    chan struct{}
	actions chan models.FeedbackAction
	quit    chan struct{}
	state   view.ListState

	mu sync.Mutex
	// queue holds at most one render op, at index pendingRender.
	queue         []op
	pendingRender int
	bindings      *view.Bindings
	closed        bool
}

// NewClient prepares a chat screen for userID.
func NewClient(chatID int64, userID string, bot BotAPI, f view.Formatter, msgs Messages, lang string) *Client {
	return &Client{
		ChatID:        chatID,
		UserID:        userID,
		Bot:           bot,
		Formatter:     f,
		Messages:      msgs,
		Language:      lang,
		wake:          make(chan struct{}, 1),
		actions:       make(chan models.FeedbackAction),
		quit:          make(chan struct{}),
		pendingRender: -1,
		bindings:      view.NewBindings(),
	}
}

func (c *Client) GetSessionID() string                  { return SessionID(c.ChatID) }
func (c *Client) GetUserID() string                     { return c.UserID }
func (c *Client) View() complaint.View                  { return c }
func (c *Client) Actions() <-chan models.FeedbackAction { return c.actions }

// SessionID is the hub key of a chat's screen.
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// Run starts the write pump. Reads are dispatched centrally by BotService.
func (c *Client) Run() {
	go c.writePump()
}

// Close stops the write pump once it has flushed what is queued.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.quit)
}

// SetLanguage switches the chat's texts to the profile language.
func (c *Client) SetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Language = lang
	c.Formatter = c.Formatter.ForLanguage(lang)
}

// Lang returns the language the chat is currently shown in.
func (c *Client) Lang() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Language
}

func (c *Client) Render(complaints []models.Complaint) {
	c.enqueue(op{render: true, list: complaints})
}

func (c *Client) Notify(n models.Notice) {
	c.enqueue(op{notice: n})
}

// Say sends a plain chat message outside of the list.
func (c *Client) Say(text string) {
	c.enqueue(op{rawText: text})
}

func (c *Client) enqueue(o op) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if o.render && c.pendingRender >= 0 {
		c.queue[c.pendingRender].list = o.list
	} else {
		if o.render {
			c.pendingRender = len(c.queue)
		}
		c.queue = append(c.queue, o)
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default: // the pump is already signalled
	}
}

// take hands the queued ops to the write pump.
func (c *Client) take() []op {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := c.queue
	c.queue = nil
	c.pendingRender = -1
	return ops
}

// Reply routes a reply to one of the row messages into a feedback submit.
// It returns false when the replied-to message is not a current row.
func (c *Client) Reply(replyToMessageID int, text string) bool {
	c.mu.Lock()
	complaintID, ok := c.bindings.Complaint(replyToMessageID)
	c.mu.Unlock()
	if !ok {
		return false
	}

	action := models.FeedbackAction{ComplaintID: complaintID, Text: view.NormalizeFeedback(text)}
	select {
	case c.actions <- action:
	case <-c.quit:
	}
	return true
}

func (c *Client) writePump() {
	defer log.Printf("Stopping writePump for Telegram chat %d", c.ChatID)

	for {
		select {
		case <-c.wake:
			c.apply(c.take())
		case <-c.quit:
			c.apply(c.take())
			c.clearRows()
			return
		}
	}
}

func (c *Client) apply(ops []op) {
	for _, o := range ops {
		switch {
		case o.render:
			c.applyRender(o.list)
		case o.rawText != "":
			c.send(tgbotapi.NewMessage(c.ChatID, o.rawText))
		default:
			c.send(tgbotapi.NewMessage(c.ChatID, noticeText(o.notice)))
		}
	}
}

// applyRender turns the keyed patch into deletes, edits and new messages.
// New rows are sent oldest first so the newest ends up at the bottom of the chat.
func (c *Client) applyRender(list []models.Complaint) {
	c.mu.Lock()
	formatter, lang := c.Formatter, c.Language
	c.mu.Unlock()

	rows := formatter.Rows(list)
	patch := c.state.Apply(rows)
	if patch.IsEmpty() {
		return
	}

	for _, id := range patch.Removed {
		c.mu.Lock()
		msgID, ok := c.bindings.Unbind(id)
		c.mu.Unlock()
		if ok {
			c.delete(msgID)
		}
	}

	for i := len(patch.Upserted) - 1; i >= 0; i-- {
		row := patch.Upserted[i]
		c.mu.Lock()
		msgID, bound := c.bindings.Message(row.ID)
		c.mu.Unlock()

		if bound {
			edit := tgbotapi.NewEditMessageText(c.ChatID, msgID, rowText(row))
			if _, err := c.Bot.Send(edit); err != nil {
				log.Printf("ERROR: Failed to edit row %s in chat %d: %v", row.ID, c.ChatID, err)
			}
			continue
		}

		sent, ok := c.send(tgbotapi.NewMessage(c.ChatID, rowText(row)))
		if ok {
			c.mu.Lock()
			c.bindings.Bind(row.ID, sent.MessageID)
			c.mu.Unlock()
		}
	}

	if len(rows) == 0 && patch.Order != nil {
		c.send(tgbotapi.NewMessage(c.ChatID, c.Messages.GetString(lang, "empty_list")))
	}
}

// clearRows removes the row messages once the screen is closed, so stale rows
// cannot be replied to.
func (c *Client) clearRows() {
	c.mu.Lock()
	ids := c.bindings.Reset()
	c.mu.Unlock()
	for _, id := range ids {
		c.delete(id)
	}
}

func (c *Client) send(msg tgbotapi.MessageConfig) (tgbotapi.Message, bool) {
	sent, err := c.Bot.Send(msg)
	if err != nil {
		log.Printf("ERROR: Failed to send Telegram message to %d: %v", c.ChatID, err)
		return tgbotapi.Message{}, false
	}
	return sent, true
}

func (c *Client) delete(messageID int) {
	if _, err := c.Bot.Request(tgbotapi.NewDeleteMessage(c.ChatID, messageID)); err != nil {
		log.Printf("WARNING: Failed to delete message %d in chat %d: %v", messageID, c.ChatID, err)
	}
}

func rowText(r models.Row) string {
	var b strings.Builder
	b.WriteString("📝 ")
	b.WriteString(r.Text)
	b.WriteString("\n🕒 ")
	b.WriteString(r.Date)
	b.WriteString("\n💬 ")
	b.WriteString(r.Feedback)
	return b.String()
}

func noticeText(n models.Notice) string {
	if n.Severity == models.SeverityError {
		return "⚠️ " + n.Message
	}
	return "✅ " + n.Message
}
