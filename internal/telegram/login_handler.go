package telegram

import (
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleLoginCommand processes "/login <token>". It verifies the token, opens
// the chat's screen through open and answers through reply.
func HandleLoginCommand(msg *tgbotapi.Message, auth TokenParser, open func(chatID int64, userID string) bool, reply func(string), msgs Messages, lang string) {
	if msg == nil || msg.Chat == nil {
		return
	}

	token := strings.TrimSpace(msg.CommandArguments())
	if token == "" {
		reply(msgs.GetString(lang, "tg_welcome"))
		return
	}

	userID, err := auth.ParseToken(token)
	if err != nil {
		log.Printf("WARNING: rejected Telegram login for chat %d: %v", msg.Chat.ID, err)
		reply(msgs.GetString(lang, "please_log_in"))
		return
	}

	if !open(msg.Chat.ID, userID) {
		log.Printf("ERROR: screen hub is not running, cannot log in chat %d", msg.Chat.ID)
		return
	}
	reply(msgs.GetString(lang, "tg_logged_in"))
}
