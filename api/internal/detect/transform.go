package detect

import "fmt"

// ToPixel maps a normalized box to pixel space. Each coordinate is scaled on its own
// (v*dim/NormBase, truncated) and clamped to [0, dim-1]; inverted boxes are swapped.
func ToPixel(box [4]int, order BoxOrder, width, height int) (PixelBox, error) {
	if width <= 0 || height <= 0 {
		return PixelBox{}, &ValueError{Field: "image size", Msg: fmt.Sprintf("%dx%d must be positive", width, height)}
	}
	for i, v := range box {
		if v < 0 || v > NormBase {
			return PixelBox{}, &ValueError{Field: "box", Msg: fmt.Sprintf("value %d at %d out of range [0,%d]", v, i, NormBase)}
		}
	}

	var xMin, yMin, xMax, yMax int
	switch order {
	case XYXY:
		xMin, yMin, xMax, yMax = box[0], box[1], box[2], box[3]
	case YXYX:
		yMin, xMin, yMax, xMax = box[0], box[1], box[2], box[3]
	default:
		return PixelBox{}, &ValueError{Field: "order", Msg: order.String()}
	}

	p := PixelBox{
		XMin: scale(xMin, width),
		YMin: scale(yMin, height),
		XMax: scale(xMax, width),
		YMax: scale(yMax, height),
	}
	if p.XMin > p.XMax {
		p.XMin, p.XMax = p.XMax, p.XMin
	}
	if p.YMin > p.YMax {
		p.YMin, p.YMax = p.YMax, p.YMin
	}
	return p, nil
}

func scale(v, dim int) int {
	px := v * dim / NormBase
	if px > dim-1 {
		px = dim - 1
	}
	if px < 0 {
		px = 0
	}
	return px
}
