package detect

import "strings"

const fence = "```"

// StripFence removes a ``` wrapper around a model reply, along with its info
// string (json, jsonl, json5...). Unfenced input only gets its surrounding
// whitespace trimmed.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = s[len(fence):]
	if i := strings.IndexByte(s, '\n'); i >= 0 && isInfoString(s[:i]) {
		s = s[i+1:]
	} else if len(s) >= 4 && strings.EqualFold(s[:4], "json") && (len(s) == 4 || !isTagByte(s[4])) {
		// single-line fence: ```json{...}```
		s = s[4:]
	}
	if i := strings.LastIndex(s, fence); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func isInfoString(line string) bool {
	line = strings.TrimSpace(line)
	for i := 0; i < len(line); i++ {
		if !isTagByte(line[i]) {
			return false
		}
	}
	return true
}

func isTagByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '_' || c == '+' || c == '.'
}
