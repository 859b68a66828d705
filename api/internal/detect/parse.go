package detect

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Labels the model falls back to when it does not name the object.
var genericLabels = map[string]struct{}{
	"object":               {},
	"the object":           {},
	"an object":            {},
	"main object":          {},
	"the main object":      {},
	"item":                 {},
	"thing":                {},
	"unknown":              {},
	"label":                {},
	"specific_object_name": {},
	"n/a":                  {},
}

// Parse turns a raw model reply into detections of the declared shape.
// It never substitutes defaults: anything off-shape is a *ParseError with the raw reply attached.
func Parse(raw string, mode Mode) ([]Detection, error) {
	body := StripFence(raw)
	if body == "" {
		return nil, &ParseError{Raw: raw, Reason: "empty reply"}
	}

	var doc json.RawMessage
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &ParseError{Raw: raw, Reason: "invalid JSON", Err: err}
	}

	switch mode {
	case Single:
		if body[0] != '{' {
			return nil, &ParseError{Raw: raw, Reason: "expected a single JSON object with box_2d"}
		}
		d, err := parseDetection(doc)
		if err != nil {
			return nil, &ParseError{Raw: raw, Reason: err.Error()}
		}
		return []Detection{d}, nil

	case Multi:
		if body[0] != '[' {
			return nil, &ParseError{Raw: raw, Reason: "expected a JSON array of detections"}
		}
		var items []json.RawMessage
		if err := json.Unmarshal(doc, &items); err != nil {
			return nil, &ParseError{Raw: raw, Reason: "invalid detection array", Err: err}
		}
		if len(items) == 0 {
			return nil, &ParseError{Raw: raw, Reason: "empty detection array; expected the [0,0,0,0] sentinel when nothing is found"}
		}
		out := make([]Detection, 0, len(items))
		for i, it := range items {
			d, err := parseDetection(it)
			if err != nil {
				return nil, &ParseError{Raw: raw, Reason: fmt.Sprintf("detection %d: %s", i, err.Error())}
			}
			out = append(out, d)
		}
		return out, nil

	default:
		return nil, &ValueError{Field: "mode", Msg: mode.String()}
	}
}

func parseDetection(raw json.RawMessage) (Detection, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Detection{}, errors.New("not a JSON object")
	}

	boxRaw, ok := fields["box_2d"]
	if !ok {
		return Detection{}, errors.New("missing box_2d")
	}
	box, err := parseBox(boxRaw)
	if err != nil {
		return Detection{}, err
	}
	d := Detection{Box: box}

	if labelRaw, ok := fields["label"]; ok {
		var label string
		if err := json.Unmarshal(labelRaw, &label); err != nil {
			return Detection{}, errors.New("label is not a string")
		}
		label = strings.TrimSpace(label)
		if label == "" {
			return Detection{}, errors.New("label is empty")
		}
		// the not-found sentinel carries no object, so its label is not checked
		if _, generic := genericLabels[strings.ToLower(label)]; generic && !d.IsZero() {
			return Detection{}, fmt.Errorf("label %q is a generic placeholder", label)
		}
		d.Label = label
	}
	return d, nil
}

func parseBox(raw json.RawMessage) ([4]int, error) {
	var box [4]int
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return box, errors.New("box_2d is not an array")
	}
	if len(elems) != 4 {
		return box, fmt.Errorf("box_2d must have exactly 4 values, got %d", len(elems))
	}
	for i, el := range elems {
		s := strings.TrimSpace(string(el))
		if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
			return box, fmt.Errorf("box_2d[%d] is not a number: %s", i, s)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return box, fmt.Errorf("box_2d[%d] is not a number: %s", i, s)
		}
		if f != math.Trunc(f) {
			return box, fmt.Errorf("box_2d[%d] is not an integer: %s", i, s)
		}
		if f < 0 || f > NormBase {
			return box, fmt.Errorf("box_2d[%d] out of range [0,%d]: %s", i, NormBase, s)
		}
		box[i] = int(f)
	}
	return box, nil
}
