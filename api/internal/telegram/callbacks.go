package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleCallback applies the inline keyboard choices sent by /engine and /order.
func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID

	kind, value, _ := strings.Cut(cb.Data, ":")
	var reply string
	switch kind {
	case "engine":
		reply = r.setEngine(cid, value)
	case "order":
		reply = r.setOrder(cid, value)
	default:
		reply = "Unknown action"
	}

	if _, err := r.Bot.Request(tgbotapi.NewCallback(cb.ID, reply)); err != nil {
		r.Log.Warn().Err(err).Msg("answer callback")
	}
	edit := tgbotapi.NewEditMessageText(cid, cb.Message.MessageID, reply)
	if _, err := r.Bot.Send(edit); err != nil {
		r.Log.Warn().Err(err).Msg("edit callback message")
	}
}
