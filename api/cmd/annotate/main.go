// Command annotate runs one image through the detection pipeline and writes the boxed copy.
//
//	annotate -in tiger.jpg -out tiger_bbox.png -target "the tiger" -engine gemini -json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/config"
	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/logging"
	"github.com/panthibivek/InsightLens/api/internal/pipeline"
	"github.com/panthibivek/InsightLens/api/internal/vision"
	"github.com/panthibivek/InsightLens/api/internal/vision/gemini"
	"github.com/panthibivek/InsightLens/api/internal/vision/openai"
)

type options struct {
	in, out      string
	mode, order  string
	target       string
	engine       string
	asJSON       bool
	configPath   string
	lineWidth    int
	timeoutSec   int
	defaultOrder detect.BoxOrder
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "annotate:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var o options
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "input image path (jpg/png/webp/gif/bmp/tiff)")
	fs.StringVar(&o.out, "out", "", "output image path (default <in>_bbox.png)")
	fs.StringVar(&o.mode, "mode", "", "reply mode: single|multi (default single with -target, else multi)")
	fs.StringVar(&o.order, "order", "", "box order the model is asked for: xyxy|yxyx (default from config)")
	fs.StringVar(&o.target, "target", "", "object to locate, e.g. \"the tiger\"")
	fs.StringVar(&o.engine, "engine", "", "vision engine: gemini|gpt (default from config)")
	fs.BoolVar(&o.asJSON, "json", false, "print detections as JSON")
	fs.StringVar(&o.configPath, "config", "", "path to YAML config (default $CONFIG_FILE)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.in == "" {
		fs.Usage()
		return errors.New("-in is required")
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.engine == "" {
		o.engine = cfg.DefaultEngine
	}
	cfg.DefaultEngine = o.engine
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.lineWidth = cfg.LineWidth
	o.timeoutSec = cfg.RequestTimeoutSec
	o.defaultOrder = cfg.Order()

	log := logging.New(cfg.LogLevel, "console", stderr)

	engs := &vision.Engines{}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	eng, err := engs.GetEngine(o.engine)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return annotateFile(ctx, vision.WithLogging(eng, log), log, o, stdout)
}

func annotateFile(ctx context.Context, eng vision.Engine, log zerolog.Logger, o options, stdout io.Writer) error {
	data, err := os.ReadFile(o.in)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Image:    data,
		Target:   strings.TrimSpace(o.target),
		Order:    o.defaultOrder,
		Annotate: true,
	}
	if o.timeoutSec > 0 {
		req.Timeout = time.Duration(o.timeoutSec) * time.Second
	}
	if o.order != "" {
		if req.Order, err = detect.ParseBoxOrder(o.order); err != nil {
			return err
		}
	}
	switch {
	case o.mode != "":
		if req.Mode, err = detect.ParseMode(o.mode); err != nil {
			return err
		}
	case req.Target != "":
		req.Mode = detect.Single
	default:
		req.Mode = detect.Multi
	}

	style := annotate.DefaultStyle()
	if o.lineWidth > 0 {
		style.Thickness = o.lineWidth
	}

	res, err := pipeline.New(eng, log, style).Run(ctx, req)
	if err != nil {
		return err
	}

	out := o.out
	if out == "" {
		out = defaultOutPath(o.in)
	}
	if err := annotate.Save(out, res.Annotated); err != nil {
		return err
	}
	log.Info().Str("path", out).Bool("found", res.Found()).Msg("wrote annotated image")

	if o.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Items)
	}
	if !res.Found() {
		_, err := fmt.Fprintln(stdout, "not found")
		return err
	}
	for _, it := range res.Items {
		if it.IsZero() {
			continue
		}
		label := it.Label
		if label == "" {
			label = req.Target
		}
		if _, err := fmt.Fprintf(stdout, "%s\t%s\n", label, it.Pixel); err != nil {
			return err
		}
	}
	return nil
}

// defaultOutPath turns photos/tiger.jpg into photos/tiger_bbox.png.
func defaultOutPath(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + "_bbox.png"
}
