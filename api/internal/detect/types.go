package detect

import (
	"fmt"
	"strings"
)

// NormBase is the coordinate base the vision model normalizes boxes to.
const NormBase = 1000

// BoxOrder declares how the four box_2d values are laid out.
type BoxOrder int

const (
	// XYXY is [x_min, y_min, x_max, y_max].
	XYXY BoxOrder = iota + 1
	// YXYX is [y_min, x_min, y_max, x_max]; Gemini's native layout.
	YXYX
)

func (o BoxOrder) String() string {
	switch o {
	case XYXY:
		return "xyxy"
	case YXYX:
		return "yxyx"
	default:
		return fmt.Sprintf("BoxOrder(%d)", int(o))
	}
}

func (o BoxOrder) Valid() bool { return o == XYXY || o == YXYX }

// ParseBoxOrder accepts "xyxy" / "yxyx" (case-insensitive).
func ParseBoxOrder(s string) (BoxOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xyxy":
		return XYXY, nil
	case "yxyx":
		return YXYX, nil
	default:
		return 0, &ValueError{Field: "order", Msg: fmt.Sprintf("unknown box order %q; use xyxy or yxyx", s)}
	}
}

// Mode is the reply shape the caller expects from the model.
type Mode int

const (
	// Single expects {"box_2d": [...]}.
	Single Mode = iota + 1
	// Multi expects [{"box_2d": [...], "label": "..."}, ...].
	Multi
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Multi:
		return "multi"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return Single, nil
	case "multi":
		return Multi, nil
	default:
		return 0, &ValueError{Field: "mode", Msg: fmt.Sprintf("unknown mode %q; use single or multi", s)}
	}
}

// Detection is one box as returned by the model, still in normalized space.
type Detection struct {
	Box   [4]int `json:"box_2d"`
	Label string `json:"label,omitempty"`
}

// IsZero reports the [0,0,0,0] "not found" sentinel.
func (d Detection) IsZero() bool { return d.Box == [4]int{} }

func (d Detection) ToPixel(order BoxOrder, width, height int) (PixelBox, error) {
	return ToPixel(d.Box, order, width, height)
}

// PixelBox is a box in image pixel space, inclusive on both ends.
type PixelBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

func (p PixelBox) IsZero() bool { return p == PixelBox{} }

func (p PixelBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", p.XMin, p.YMin, p.XMax, p.YMax)
}
