package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/vision"
)

// Sender is the part of *tgbotapi.BotAPI the router talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot        Sender
	Engines    *vision.Engines
	EngManager *vision.Manager
	Log        zerolog.Logger

	Order   detect.BoxOrder
	Style   annotate.Style
	Timeout time.Duration
	// MaxPhotoBytes caps downloads; zero means 20 MiB.
	MaxPhotoBytes int64
	HTTP          *http.Client

	orders sync.Map // chatID -> detect.BoxOrder
	wg     sync.WaitGroup
}

// Wait blocks until every photo being processed has been answered.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message

	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}

	if len(msg.Photo) > 0 || isImageDocument(msg.Document) {
		r.acceptPhoto(ctx, *msg)
		return
	}
	if strings.TrimSpace(msg.Text) != "" {
		r.send(msg.Chat.ID, "Send me a photo. Put what to look for in the caption, e.g. \"the tiger\".")
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "OK")
	case "engine":
		if len(args) == 0 {
			r.sendWithKeyboard(cid, "Current engine: "+r.engineLabel(cid)+"\nUsage: /engine gemini|gpt", engineKeyboard())
			return
		}
		r.send(cid, r.setEngine(cid, args[0]))
	case "order":
		if len(args) == 0 {
			r.sendWithKeyboard(cid, "Current box order: "+r.order(cid).String()+"\nUsage: /order xyxy|yxyx", orderKeyboard())
			return
		}
		r.send(cid, r.setOrder(cid, args[0]))
	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

func (r *Router) setEngine(cid int64, name string) string {
	eng, err := r.Engines.GetEngine(name)
	if err != nil {
		return err.Error()
	}
	r.EngManager.Set(cid, eng)
	return fmt.Sprintf("Engine: %s (%s)", eng.Name(), eng.GetModel())
}

func (r *Router) setOrder(cid int64, s string) string {
	o, err := detect.ParseBoxOrder(s)
	if err != nil {
		return "Unknown box order. Use xyxy or yxyx"
	}
	r.orders.Store(cid, o)
	return "Box order: " + o.String()
}

func (r *Router) order(cid int64) detect.BoxOrder {
	if v, ok := r.orders.Load(cid); ok {
		return v.(detect.BoxOrder)
	}
	if r.Order.Valid() {
		return r.Order
	}
	return detect.YXYX
}

func (r *Router) engineLabel(cid int64) string {
	e := r.EngManager.Get(cid)
	if e == nil {
		return "none"
	}
	return e.Name() + " (" + e.GetModel() + ")"
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send")
	}
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send")
	}
}

// sendError answers with a short category message; details stay in the log.
func (r *Router) sendError(chatID int64, err error) {
	r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("photo request failed")
	r.send(chatID, userMessage(err))
}
