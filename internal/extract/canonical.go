package extract

import "strings"

// DefaultPlaceholder is the implicit-reference proxy prefix removed from rendered
// expressions (`_.x > 0` reads as `x > 0`).
const DefaultPlaceholder = "_."

// Canonicalize turns the narrowed lines into a single-line expression, or ""
// when more than one physical line remains.
//
// The placeholder is removed textually, including inside string literals.
func Canonicalize(lines []string, placeholder string) string {
	text := strings.TrimRightFunc(strings.Join(lines, "\n"), isSpace)
	rows := strings.Split(text, "\n")

	last := rows[len(rows)-1]
	if strings.HasSuffix(last, ",") {
		rows[len(rows)-1] = strings.TrimRightFunc(strings.TrimSuffix(last, ","), isSpace)
	}

	if len(rows) > 1 {
		return ""
	}

	out := strings.Join(rows, " ")
	if placeholder != "" {
		out = strings.ReplaceAll(out, placeholder, "")
	}
	return strings.TrimSpace(out)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}
