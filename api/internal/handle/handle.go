package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/httpserver"
	"github.com/panthibivek/InsightLens/api/internal/vision"
)

type Options struct {
	DefaultEngine  string
	Order          detect.BoxOrder
	Timeout        time.Duration
	MaxUploadBytes int64
	Style          annotate.Style
}

type Handle struct {
	engs *vision.Engines
	opts Options
	log  zerolog.Logger
}

func New(engs *vision.Engines, opts Options, log zerolog.Logger) *Handle {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if !opts.Order.Valid() {
		opts.Order = detect.YXYX
	}
	return &Handle{engs: engs, opts: opts, log: log}
}

// Routes returns the service mux wrapped in CORS and request-id middleware.
func (h *Handle) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/v1/detect", h.Detect)
	mux.HandleFunc("/v1/annotate", h.Annotate)
	mux.HandleFunc("/ask_image", h.Detect)
	return httpserver.WithRequestID(h.log, httpserver.WithCORS(mux))
}

func (h *Handle) Healthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. Only input errors echo their
// message; model and internal failures are logged in full and answered generically.
func (h *Handle) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := http.StatusInternalServerError, "internal error"
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		code, msg = http.StatusRequestEntityTooLarge, "image too large"
	case detect.IsValue(err):
		code, msg = http.StatusBadRequest, err.Error()
	case detect.IsTransport(err):
		code, msg = http.StatusBadGateway, "vision model unavailable"
	case detect.IsParse(err):
		code, msg = http.StatusUnprocessableEntity, "could not interpret model reply"
	}

	lvl := zerolog.ErrorLevel
	if code < http.StatusInternalServerError {
		lvl = zerolog.WarnLevel
	}
	h.log.WithLevel(lvl).Err(err).
		Str("request_id", httpserver.RequestID(r.Context())).
		Str("path", r.URL.Path).
		Int("status", code).
		Msg("request failed")

	writeJSON(w, code, map[string]string{"error": msg})
}
