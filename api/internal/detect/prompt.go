package detect

import (
	"fmt"
	"strings"
)

func orderLayout(order BoxOrder) string {
	if order == XYXY {
		return "[x_min, y_min, x_max, y_max]"
	}
	return "[y_min, x_min, y_max, x_max]"
}

// BuildPrompt returns the instruction text for the vision model.
// The output is a pure function of its arguments.
func BuildPrompt(mode Mode, order BoxOrder, target string) string {
	layout := orderLayout(order)
	target = strings.TrimSpace(target)

	var b strings.Builder
	b.WriteString("You are a vision API. ")
	switch {
	case target != "" && mode == Single:
		fmt.Fprintf(&b, "Locate %q in the image and return only valid JSON.\n", target)
	case target != "":
		fmt.Fprintf(&b, "Locate every instance of %q in the image and return only valid JSON.\n", target)
	case mode == Single:
		b.WriteString("Detect the main object in the image and return only valid JSON.\n")
	default:
		b.WriteString("Identify the main objects in the image and return only valid JSON.\n")
	}

	b.WriteString("\nRULES:\n")
	b.WriteString("- Output only JSON (no text, no code fences, no explanations)\n")
	if mode == Single {
		fmt.Fprintf(&b, "- JSON format must be exactly: {\"box_2d\": %s}\n", layout)
	} else {
		fmt.Fprintf(&b, "- JSON format must be exactly: [{\"box_2d\": %s, \"label\": \"specific_object_name\"}]\n", layout)
		b.WriteString("- label is the specific name of the object (e.g. \"cat\", \"laptop\", \"bottle\"), NOT a generic term like \"the object\"\n")
	}
	fmt.Fprintf(&b, "- box_2d is %s normalized to integers 0-%d relative to the image size\n", layout, NormBase)
	b.WriteString("- Coordinate values MUST be integers\n")
	if mode == Single {
		b.WriteString("- Keys must match exactly: \"box_2d\"\n")
		b.WriteString("- Do NOT include label, confidence, or any extra fields\n")
	} else {
		b.WriteString("- Keys must match exactly: \"box_2d\", \"label\"\n")
		b.WriteString("- Do NOT include confidence or any extra fields\n")
	}
	b.WriteString("- Do NOT wrap the JSON in ```json or backticks\n")
	if target != "" {
		if mode == Single {
			b.WriteString("- If the described object is not visible, return {\"box_2d\": [0, 0, 0, 0]}; never omit box_2d\n")
		} else {
			b.WriteString("- If the described object is not visible, return [{\"box_2d\": [0, 0, 0, 0], \"label\": \"none_found\"}]; never return an empty array\n")
		}
	} else if mode == Multi {
		b.WriteString("- If no object is visible, return [{\"box_2d\": [0, 0, 0, 0], \"label\": \"none_found\"}]; never return an empty array\n")
	}
	return b.String()
}
