package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/config"
	"github.com/panthibivek/InsightLens/api/internal/handle"
	"github.com/panthibivek/InsightLens/api/internal/httpserver"
	"github.com/panthibivek/InsightLens/api/internal/logging"
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
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	engines := newEngines(cfg)

	style := annotate.DefaultStyle()
	style.Thickness = cfg.LineWidth

	h := handle.New(engines, handle.Options{
		DefaultEngine:  cfg.DefaultEngine,
		Order:          cfg.Order(),
		Timeout:        cfg.RequestTimeout(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Style:          style,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("engine", cfg.DefaultEngine).
		Str("order", cfg.Order().String()).
		Msg("insightlens starting")
	if err := httpserver.Run(ctx, ":"+cfg.Port, h.Routes(), log); err != nil {
		log.Fatal().Err(err).Msg("http server")
	}
}

// newEngines wires only the providers that have a key, so asking for the other one is a client error.
func newEngines(cfg *config.Config) *vision.Engines {
	engs := &vision.Engines{}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	return engs
}
