// Package telegram exposes the complaint list as a Telegram chat. It receives
// updates, signs staff in with their token and routes replies to the screen hub.
package telegram

import (
	"context"
	"log"
	"strings"
	"sync"

	"complaintdesk/backend/internal/screen"
	"complaintdesk/backend/internal/view"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the subset of *tgbotapi.BotAPI the service uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Messages resolves chat texts.
type Messages interface {
	GetString(lang, key string) string
}

// TokenParser turns a login token into a user id.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// BotService receives Telegram updates and routes them to the screen hub.
type BotService struct {
	Bot             BotAPI
	Hub             *screen.ManagerService
	Auth            TokenParser
	Messages        Messages
	Formatter       view.Formatter
	DefaultLanguage string

	mu      sync.Mutex
	clients map[int64]*Client
}

// NewBotService authorizes against the Bot API with token.
func NewBotService(token string, hub *screen.ManagerService, auth TokenParser, msgs Messages, f view.Formatter, lang string) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)

	return NewBotServiceWithAPI(bot, hub, auth, msgs, f, lang), nil
}

// NewBotServiceWithAPI wires an already created API client.
func NewBotServiceWithAPI(bot BotAPI, hub *screen.ManagerService, auth TokenParser, msgs Messages, f view.Formatter, lang string) *BotService {
	return &BotService{
		Bot:             bot,
		Hub:             hub,
		Auth:            auth,
		Messages:        msgs,
		Formatter:       f,
		DefaultLanguage: lang,
		clients:         make(map[int64]*Client),
	}
}

// Run is the main loop for receiving Telegram updates.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.Bot.GetUpdatesChan(u)
	defer s.Bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(update)
		}
	}
}

// HandleUpdate dispatches one update.
func (s *BotService) HandleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			s.reply(msg.Chat.ID, s.Messages.GetString(s.DefaultLanguage, "tg_welcome"))
		case "login":
			HandleLoginCommand(msg, s.Auth, s.login, func(text string) { s.reply(msg.Chat.ID, text) }, s.Messages, s.DefaultLanguage)
		case "logout":
			s.logout(msg.Chat.ID)
		}
		return
	}

	s.handleText(msg)
}

// handleText routes a reply to a row into a feedback submit.
func (s *BotService) handleText(msg *tgbotapi.Message) {
	client := s.client(msg.Chat.ID)
	if client == nil {
		s.reply(msg.Chat.ID, s.Messages.GetString(s.DefaultLanguage, "please_log_in"))
		return
	}
	if msg.ReplyToMessage == nil || !client.Reply(msg.ReplyToMessage.MessageID, extractMessageContent(msg)) {
		client.Say(s.Messages.GetString(client.Lang(), "tg_reply_hint"))
	}
}

// login opens a screen for userID in chatID, replacing an earlier one.
func (s *BotService) login(chatID int64, userID string) bool {
	client := NewClient(chatID, userID, s.Bot, s.Formatter, s.Messages, s.DefaultLanguage)
	if !s.Hub.Register(client) {
		return false
	}
	s.mu.Lock()
	s.clients[chatID] = client
	s.mu.Unlock()
	return true
}

func (s *BotService) logout(chatID int64) {
	s.mu.Lock()
	client, ok := s.clients[chatID]
	delete(s.clients, chatID)
	s.mu.Unlock()

	lang := s.DefaultLanguage
	if ok {
		lang = client.Lang()
		s.Hub.Unregister(client)
	}
	s.reply(chatID, s.Messages.GetString(lang, "tg_logged_out"))
}

// client returns the chat's screen if the hub still has it open.
func (s *BotService) client(chatID int64) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[chatID]
	if !ok {
		return nil
	}
	if !s.Hub.HasSession(client.GetSessionID()) {
		delete(s.clients, chatID)
		return nil
	}
	return client
}

func (s *BotService) reply(chatID int64, text string) {
	if _, err := s.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("ERROR: Failed to reply to chat %d: %v", chatID, err)
	}
}

// extractMessageContent uniformly extracts text or a caption from a message.
func extractMessageContent(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return strings.TrimSpace(msg.Caption)
}
