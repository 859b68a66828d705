package vision

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type loggingEngine struct {
	Engine
	log zerolog.Logger
}

// WithLogging wraps an engine so every call logs its prompt size, latency and raw reply.
func WithLogging(e Engine, log zerolog.Logger) Engine {
	return &loggingEngine{Engine: e, log: log.With().Str("engine", e.Name()).Str("model", e.GetModel()).Logger()}
}

func (l *loggingEngine) Generate(ctx context.Context, img []byte, mime, prompt string) (string, error) {
	l.log.Debug().
		Int("image_bytes", len(img)).
		Str("mime", mime).
		Int("prompt_chars", len(prompt)).
		Msg("vision request")

	t := time.Now()
	out, err := l.Engine.Generate(ctx, img, mime, prompt)
	took := time.Since(t)
	if err != nil {
		l.log.Warn().Err(err).Dur("took", took).Msg("vision request failed")
		return "", err
	}
	l.log.Debug().Dur("took", took).Str("raw", out).Msg("vision reply")
	return out, nil
}
