package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/config"
	"github.com/panthibivek/InsightLens/api/internal/httpserver"
	"github.com/panthibivek/InsightLens/api/internal/logging"
	"github.com/panthibivek/InsightLens/api/internal/telegram"
	"github.com/panthibivek/InsightLens/api/internal/vision"
	"github.com/panthibivek/InsightLens/api/internal/vision/gemini"
	"github.com/panthibivek/InsightLens/api/internal/vision/openai"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (default $CONFIG_FILE)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot := logging.New("info", "json", os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err := cfg.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram login")
	}
	bot.Debug = false
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram authorized")

	engines := &vision.Engines{}
	if cfg.GeminiAPIKey != "" {
		engines.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engines.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	def, err := engines.GetEngine(cfg.DefaultEngine)
	if err != nil {
		log.Fatal().Err(err).Msg("default engine")
	}

	style := annotate.DefaultStyle()
	style.Thickness = cfg.LineWidth

	r := &telegram.Router{
		Bot:           bot,
		Engines:       engines,
		EngManager:    vision.NewManager(def),
		Log:           log,
		Order:         cfg.Order(),
		Style:         style,
		Timeout:       cfg.RequestTimeout(),
		MaxPhotoBytes: cfg.MaxUploadBytes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	addr := "0.0.0.0:" + cfg.Port

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		err = runWebhook(ctx, addr, mux, bot, r, webhookURL, log)
	} else {
		err = runPolling(ctx, addr, mux, bot, r, log)
	}
	r.Wait()
	if err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
}

func runWebhook(ctx context.Context, addr string, mux *http.ServeMux, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, log zerolog.Logger) error {
	path := telegram.WebhookPath(bot.Token)
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	updates := make(chan tgbotapi.Update, bot.Buffer)
	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Warn().Err(err).Msg("bad webhook update")
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		select {
		case updates <- *upd:
		case <-req.Context().Done():
		}
	})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				r.HandleUpdate(ctx, upd)
			}
		}
	}()

	log.Info().Str("path", path).Msg("webhook mode")
	return httpserver.Run(ctx, addr, httpserver.WithRequestID(log, mux), log)
}

func runPolling(ctx context.Context, addr string, mux *http.ServeMux, bot *tgbotapi.BotAPI, r *telegram.Router, log zerolog.Logger) error {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn().Err(err).Msg("delete webhook")
	}

	log.Info().Msg("polling mode")
	return serveWhile(ctx,
		func(ctx context.Context) error { return httpserver.Run(ctx, addr, mux, log) },
		func(ctx context.Context) {
			telegram.RunPolling(ctx, bot, log, func(upd tgbotapi.Update) { r.HandleUpdate(ctx, upd) })
		})
}

// serveWhile runs serve next to poll. A serve failure cancels poll and is returned.
func serveWhile(ctx context.Context, serve func(context.Context) error, poll func(context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		err := serve(ctx)
		if err != nil {
			cancel()
		}
		errc <- err
	}()

	poll(ctx)
	cancel()

	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
