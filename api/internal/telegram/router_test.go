package telegram

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/vision"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeBot) last(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	switch m := f.last(t).(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	default:
		t.Fatalf("last sent is %T, not a text message", m)
		return ""
	}
}

type fakeEngine struct {
	name  string
	reply string
	err   error
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) GetModel() string { return f.name + "-model" }
func (f *fakeEngine) Generate(context.Context, []byte, string, string) (string, error) {
	return f.reply, f.err
}

func newRouter(bot *fakeBot, gemini, gpt vision.Engine) *Router {
	engs := &vision.Engines{Gemini: gemini, OpenAI: gpt}
	return &Router{
		Bot:        bot,
		Engines:    engs,
		EngManager: vision.NewManager(gemini),
		Log:        zerolog.New(io.Discard),
		Order:      detect.XYXY,
		Style:      annotate.DefaultStyle(),
		Timeout:    5 * time.Second,
	}
}

func command(cid int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: cid},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func photoServer(t *testing.T, w, h int) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func photoUpdate(cid int64, caption string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 42,
		Chat:      &tgbotapi.Chat{ID: cid},
		Caption:   caption,
		Photo:     []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}}
}

func TestStartCommand(t *testing.T) {
	bot := &fakeBot{}
	newRouter(bot, &fakeEngine{name: "gemini"}, nil).HandleUpdate(context.Background(), command(1, "/start"))
	assert.Contains(t, bot.lastText(t), "/engine")
}

func TestEngineCommand(t *testing.T) {
	bot := &fakeBot{}
	g, o := &fakeEngine{name: "gemini"}, &fakeEngine{name: "gpt"}
	r := newRouter(bot, g, o)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/engine"))
	assert.Contains(t, bot.lastText(t), "gemini (gemini-model)")

	r.HandleUpdate(ctx, command(7, "/engine gpt"))
	assert.Equal(t, "Engine: gpt (gpt-model)", bot.lastText(t))
	assert.Same(t, vision.Engine(o), r.EngManager.Get(7))
	assert.Same(t, vision.Engine(g), r.EngManager.Get(8))

	r.HandleUpdate(ctx, command(7, "/engine llama"))
	assert.Contains(t, bot.lastText(t), "unknown engine")
}

func TestEngineCommandNotConfigured(t *testing.T) {
	bot := &fakeBot{}
	r := newRouter(bot, &fakeEngine{name: "gemini"}, nil)
	r.HandleUpdate(context.Background(), command(1, "/engine gpt"))
	assert.Contains(t, bot.lastText(t), "not configured")
}

func TestOrderCommand(t *testing.T) {
	bot := &fakeBot{}
	r := newRouter(bot, &fakeEngine{name: "gemini"}, nil)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(3, "/order yxyx"))
	assert.Equal(t, "Box order: yxyx", bot.lastText(t))
	assert.Equal(t, detect.YXYX, r.order(3))
	assert.Equal(t, detect.XYXY, r.order(4))

	r.HandleUpdate(ctx, command(3, "/order zz"))
	assert.Contains(t, bot.lastText(t), "Unknown box order")
}

func TestCallbackSwitchesOrder(t *testing.T) {
	bot := &fakeBot{}
	r := newRouter(bot, &fakeEngine{name: "gemini"}, nil)
	r.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "order:yxyx",
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 5}},
	}})

	assert.Equal(t, detect.YXYX, r.order(5))
	require.Len(t, bot.requests, 1)
	assert.Equal(t, "Box order: yxyx", bot.lastText(t))
}

func TestPhotoAnnotated(t *testing.T) {
	srv := photoServer(t, 100, 100)
	bot := &fakeBot{fileURL: srv.URL}
	r := newRouter(bot, &fakeEngine{name: "gemini", reply: `[{"box_2d":[100,100,500,500],"label":"dog"}]`}, nil)

	r.HandleUpdate(context.Background(), photoUpdate(1, ""))
	r.Wait()

	photo, ok := bot.last(t).(tgbotapi.PhotoConfig)
	require.True(t, ok, "expected a photo reply")
	assert.Equal(t, "dog (10,10)-(50,50)", photo.Caption)
	assert.Equal(t, 42, photo.ReplyToMessageID)

	fb, ok := photo.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	img, err := png.Decode(bytes.NewReader(fb.Bytes))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())
}

func TestPhotoTargetNotFound(t *testing.T) {
	srv := photoServer(t, 10, 10)
	bot := &fakeBot{fileURL: srv.URL}
	r := newRouter(bot, &fakeEngine{name: "gemini", reply: "```json\n{\"box_2d\":[0,0,0,0]}\n```"}, nil)

	r.HandleUpdate(context.Background(), photoUpdate(1, "the tiger"))
	r.Wait()
	assert.Equal(t, `Could not find "the tiger" in this photo.`, bot.lastText(t))
}

func TestPhotoErrorsAreCategorised(t *testing.T) {
	srv := photoServer(t, 10, 10)
	cases := map[string]*fakeEngine{
		"unavailable":    {name: "gemini", err: errors.New("quota exceeded")},
		"could not read": {name: "gemini", reply: "sorry"},
	}
	for want, eng := range cases {
		bot := &fakeBot{fileURL: srv.URL}
		r := newRouter(bot, eng, nil)
		r.HandleUpdate(context.Background(), photoUpdate(1, ""))
		r.Wait()
		msg := bot.lastText(t)
		assert.Contains(t, msg, want)
		assert.NotContains(t, msg, "quota")
	}
}

func TestPhotoWithoutEngine(t *testing.T) {
	bot := &fakeBot{}
	r := newRouter(bot, nil, nil)
	r.HandleUpdate(context.Background(), photoUpdate(1, ""))
	r.Wait()
	assert.Contains(t, bot.lastText(t), "No vision engine")
}

func TestPhotoTooLarge(t *testing.T) {
	srv := photoServer(t, 50, 50)
	bot := &fakeBot{fileURL: srv.URL}
	r := newRouter(bot, &fakeEngine{name: "gemini"}, nil)
	r.MaxPhotoBytes = 16
	r.HandleUpdate(context.Background(), photoUpdate(1, ""))
	r.Wait()
	assert.Contains(t, bot.lastText(t), "larger than 16 bytes")
}

func TestPlainTextGetsHint(t *testing.T) {
	bot := &fakeBot{}
	newRouter(bot, nil, nil).HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 1}, Text: "hello",
	}})
	assert.Contains(t, bot.lastText(t), "Send me a photo")
}
