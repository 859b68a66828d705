package annotate

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/panthibivek/InsightLens/api/internal/detect"
)

// Box is a pixel-space rectangle with an optional caption.
type Box struct {
	detect.PixelBox
	Label string
}

type Style struct {
	Color     color.Color
	Thickness int
	// LabelOffset is the gap in pixels between the box corner and the caption.
	LabelOffset int
}

func DefaultStyle() Style {
	return Style{
		Color:       color.RGBA{R: 255, A: 255},
		Thickness:   3,
		LabelOffset: 5,
	}
}

var labelFace font.Face = basicfont.Face7x13

// Draw returns a copy of img with every box outlined and labelled. Callers drop
// not-found detections before drawing; img itself is left untouched.
func Draw(img image.Image, boxes []Box, style Style) *image.RGBA {
	if style.Color == nil {
		style.Color = DefaultStyle().Color
	}
	if style.Thickness <= 0 {
		style.Thickness = 1
	}

	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	ink := image.NewUniform(style.Color)
	for _, b := range boxes {
		r := image.Rect(b.XMin, b.YMin, b.XMax+1, b.YMax+1).Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		outline(dst, r, style.Thickness, ink)
		if b.Label != "" {
			caption(dst, r, b.Label, style, ink)
		}
	}
	return dst
}

func outline(dst *image.RGBA, r image.Rectangle, th int, ink image.Image) {
	if th*2 >= r.Dx() || th*2 >= r.Dy() {
		draw.Draw(dst, r, ink, image.Point{}, draw.Src)
		return
	}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+th),
		image.Rect(r.Min.X, r.Max.Y-th, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+th, r.Max.Y),
		image.Rect(r.Max.X-th, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, ink, image.Point{}, draw.Src)
	}
}

// caption puts the label just above the box, or inside its top edge when there is no room.
func caption(dst *image.RGBA, r image.Rectangle, label string, style Style, ink image.Image) {
	m := labelFace.Metrics()
	ascent := m.Ascent.Ceil()

	x := r.Min.X + style.LabelOffset
	y := r.Min.Y - style.LabelOffset
	if y-ascent < dst.Bounds().Min.Y {
		y = r.Min.Y + style.Thickness + ascent + 2
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  ink,
		Face: labelFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}
