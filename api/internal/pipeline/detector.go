package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/util"
	"github.com/panthibivek/InsightLens/api/internal/vision"
)

type Request struct {
	Image  []byte
	MIME   string
	Mode   detect.Mode
	Order  detect.BoxOrder
	Target string

	// Annotate asks for Result.Annotated to be rendered.
	Annotate bool
	// Timeout bounds the model call; zero leaves the caller's context as is.
	Timeout time.Duration
}

// Item is one detection together with its pixel-space box.
type Item struct {
	detect.Detection
	Pixel detect.PixelBox `json:"pixel_box"`
}

type Result struct {
	Engine string
	Model  string
	Mode   detect.Mode
	Order  detect.BoxOrder
	Width  int
	Height int
	Raw    string
	Items  []Item

	Annotated *image.RGBA
}

// Found reports whether any detection is something other than the zero-box sentinel.
func (r *Result) Found() bool {
	for _, it := range r.Items {
		if !it.IsZero() {
			return true
		}
	}
	return false
}

type Detector struct {
	Engine vision.Engine
	Log    zerolog.Logger
	Style  annotate.Style
}

func New(engine vision.Engine, log zerolog.Logger, style annotate.Style) *Detector {
	return &Detector{Engine: engine, Log: log, Style: style}
}

// Run executes the whole request or fails at the first faulty step; a partial result is never returned.
func (d *Detector) Run(ctx context.Context, req Request) (*Result, error) {
	if !req.Order.Valid() {
		return nil, &detect.ValueError{Field: "order", Msg: "box order must be declared"}
	}
	if req.Mode != detect.Single && req.Mode != detect.Multi {
		return nil, &detect.ValueError{Field: "mode", Msg: "reply mode must be declared"}
	}

	img, format, err := annotate.Decode(req.Image)
	if err != nil {
		return nil, &detect.ValueError{Field: "image", Msg: err.Error()}
	}
	b := img.Bounds()
	mime := util.PickMIME(req.MIME, "image/"+format, req.Image)

	log := d.Log.With().
		Str("engine", d.Engine.Name()).
		Str("mode", req.Mode.String()).
		Str("order", req.Order.String()).
		Str("image_sha", util.SHA256Hex(req.Image)[:12]).
		Logger()

	prompt := detect.BuildPrompt(req.Mode, req.Order, req.Target)

	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	raw, err := d.Engine.Generate(callCtx, req.Image, mime, prompt)
	if err != nil {
		return nil, detect.NewTransportError(d.Engine.Name(), err)
	}

	dets, err := detect.Parse(raw, req.Mode)
	if err != nil {
		log.Warn().Err(err).Str("raw", raw).Msg("model reply rejected")
		return nil, err
	}

	res := &Result{
		Engine: d.Engine.Name(),
		Model:  d.Engine.GetModel(),
		Mode:   req.Mode,
		Order:  req.Order,
		Width:  b.Dx(),
		Height: b.Dy(),
		Raw:    raw,
		Items:  make([]Item, 0, len(dets)),
	}
	boxes := make([]annotate.Box, 0, len(dets))
	for _, det := range dets {
		px, err := det.ToPixel(req.Order, res.Width, res.Height)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, Item{Detection: det, Pixel: px})
		if !det.IsZero() {
			boxes = append(boxes, annotate.Box{PixelBox: px, Label: det.Label})
		}
	}

	if req.Annotate {
		res.Annotated = annotate.Draw(img, boxes, d.Style)
	}

	log.Info().Int("detections", len(res.Items)).Bool("found", res.Found()).Msg("detection done")
	return res, nil
}
