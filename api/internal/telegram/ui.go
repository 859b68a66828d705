package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/pipeline"
)

const helpText = `Send a photo and I will draw boxes around what I find.
Caption the photo with a target ("the tiger") to look for one object, or leave it empty to find every object.

Commands:
/engine gemini|gpt - choose the vision model
/order xyxy|yxyx - box layout the model is asked for
/health - check the bot is alive`

// Telegram rejects photo captions above 1024 characters.
const maxCaption = 1024

func engineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Gemini", "engine:gemini"),
		tgbotapi.NewInlineKeyboardButtonData("GPT", "engine:gpt"),
	))
}

func orderKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("xyxy", "order:xyxy"),
		tgbotapi.NewInlineKeyboardButtonData("yxyx", "order:yxyx"),
	))
}

// resultCaption lists one line per found box, using the target when the model gave no label.
func resultCaption(res *pipeline.Result, target string) string {
	var b strings.Builder
	for _, it := range res.Items {
		if it.IsZero() {
			continue
		}
		label := it.Label
		if label == "" {
			label = target
		}
		if label == "" {
			label = "object"
		}
		line := label + " " + it.Pixel.String() + "\n"
		if b.Len()+len(line) > maxCaption-1 {
			b.WriteString("…")
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func userMessage(err error) string {
	switch {
	case detect.IsValue(err):
		return "I could not use this photo: " + err.Error()
	case detect.IsTransport(err):
		return "The vision model is unavailable right now. Please try again later."
	case detect.IsParse(err):
		return "The model answered in a form I could not read. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
