package extract

import "github.com/mvp-joe/predsrc/internal/lexer"

// Span delimits the text to keep, from the start of First to the end of Last.
type Span struct {
	First lexer.Token
	Last  lexer.Token
}

// SliceLines returns the lines between first.Start and last.End: rows outside
// the span are dropped, the first kept line loses everything before
// first.Start.Col and the last kept line everything from last.End.Col on.
// The input is never modified.
func SliceLines(lines []string, first, last lexer.Token) []string {
	if last.End.Before(first.Start) {
		return append([]string(nil), lines...)
	}

	from := clamp(first.Start.Row-1, 0, len(lines))
	to := clamp(last.End.Row, from, len(lines))
	out := append([]string(nil), lines[from:to]...)
	if len(out) == 0 {
		return out
	}

	// cut the end first: on a single line both columns refer to the original text
	lastLine := out[len(out)-1]
	out[len(out)-1] = lastLine[:clamp(last.End.Col, 0, len(lastLine))]

	firstLine := out[0]
	out[0] = firstLine[clamp(first.Start.Col, 0, len(firstLine)):]
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
