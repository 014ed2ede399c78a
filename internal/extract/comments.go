package extract

import (
	"strings"

	"github.com/mvp-joe/predsrc/internal/lexer"
)

// StripComments truncates every line holding a comment at the comment's start
// and trims the trailing whitespace left behind. Comments scanned before a
// lexical error are still removed.
func StripComments(lines []string) []string {
	tokens, _ := lexer.Tokenize(lines)

	out := append([]string(nil), lines...)
	for _, tok := range tokens {
		if tok.Kind != lexer.Comment {
			continue
		}
		row := tok.Start.Row - 1
		if row < 0 || row >= len(out) || tok.Start.Col > len(out[row]) {
			continue
		}
		out[row] = strings.TrimRight(out[row][:tok.Start.Col], " \t\f")
	}
	return out
}

// clearLines drops blank lines and trailing whitespace. It is the recovery
// step for line sequences that do not lex on their own.
func clearLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\f\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
