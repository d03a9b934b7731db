package flow

import "strings"

// InsertSentinel marks the cursor at 0-based (line, col) by inserting token.
// The column counts runes and is clamped to the line; a line outside the
// buffer leaves it unchanged.
func InsertSentinel(buffer string, line, col int, token string) string {
	lines := strings.Split(buffer, "\n")
	if line < 0 || line >= len(lines) {
		return buffer
	}

	text := lines[line]
	cr := strings.HasSuffix(text, "\r")
	if cr {
		text = text[:len(text)-1]
	}

	runes := []rune(text)
	if col < 0 {
		col = 0
	}
	if col > len(runes) {
		col = len(runes)
	}

	marked := string(runes[:col]) + token + string(runes[col:])
	if cr {
		marked += "\r"
	}
	lines[line] = marked
	return strings.Join(lines, "\n")
}
