package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LexError reports a line sequence that cannot be closed on its own: input
// ended inside brackets, inside a string, or after a line continuation.
type LexError struct {
	Row int
	Col int
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexical error at %d:%d: %s", e.Row, e.Col, e.Msg)
}

var (
	threeCharOps = []string{"**=", "//=", ">>=", "<<=", "..."}
	twoCharOps   = []string{
		"**", "//", ">>", "<<", "<=", ">=", "==", "!=", "->", ":=",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	}
)

const singleCharOps = "+-*/%@&|^~<>()[]{},:.;="

// openString tracks a string literal that continues past the end of a line.
type openString struct {
	start  Position
	quote  string
	triple bool
	text   strings.Builder
}

type scanner struct {
	lines     []string
	tokens    []Token
	indents   []int
	depth     int
	continued bool
	str       *openString
}

// Tokenize scans lines and drops layout-only tokens (INDENT, DEDENT, ENDMARKER).
// On failure the tokens scanned before the error are returned with a *LexError.
func Tokenize(lines []string) ([]Token, error) {
	tokens, err := Scan(lines)
	return Significant(tokens), err
}

// Significant filters out structural tokens.
func Significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind.Structural() {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Scan returns every token including INDENT, DEDENT and the final ENDMARKER.
func Scan(lines []string) ([]Token, error) {
	s := &scanner{
		lines:   lines,
		indents: []int{0},
	}
	for i, line := range lines {
		if err := s.scanLine(i+1, line); err != nil {
			return s.tokens, err
		}
	}
	return s.finish()
}

func (s *scanner) emit(kind Kind, text string, start, end Position) {
	s.tokens = append(s.tokens, Token{Kind: kind, Text: text, Start: start, End: end})
}

func (s *scanner) scanLine(row int, line string) error {
	pos := 0

	switch {
	case s.str != nil:
		end, closed, err := s.continueString(row, line)
		if err != nil || !closed {
			return err
		}
		pos = end
	case s.depth <= 0 && !s.continued:
		col, first := measureIndent(line)
		if first == len(line) || line[first] == '#' {
			if first < len(line) {
				s.emit(Comment, line[first:], Position{row, first}, Position{row, len(line)})
			}
			s.emit(NL, "", Position{row, len(line)}, Position{row, len(line)})
			return nil
		}
		s.indent(row, line, col, first)
		pos = first
	}
	s.continued = false

	for pos < len(line) {
		ch := line[pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\f':
			pos++
		case ch == '#':
			s.emit(Comment, line[pos:], Position{row, pos}, Position{row, len(line)})
			pos = len(line)
		case ch == '\\':
			if pos == len(line)-1 {
				s.continued = true
				return nil
			}
			s.emit(ErrorToken, `\`, Position{row, pos}, Position{row, pos + 1})
			pos++
		case ch == '"' || ch == '\'':
			next, err := s.startString(row, line, pos, pos)
			if err != nil || s.str != nil {
				return err
			}
			pos = next
		case isDigit(ch) || (ch == '.' && pos+1 < len(line) && isDigit(line[pos+1])):
			end := scanNumber(line, pos)
			s.emit(Number, line[pos:end], Position{row, pos}, Position{row, end})
			pos = end
		default:
			r, size := utf8.DecodeRuneInString(line[pos:])
			if isIdentStart(r) {
				end := scanName(line, pos+size)
				if end < len(line) && (line[end] == '"' || line[end] == '\'') && isStringPrefix(line[pos:end]) {
					next, err := s.startString(row, line, pos, end)
					if err != nil || s.str != nil {
						return err
					}
					pos = next
					continue
				}
				s.emit(Name, line[pos:end], Position{row, pos}, Position{row, end})
				pos = end
				continue
			}
			pos = s.scanOperator(row, line, pos, size)
		}
	}

	kind := Newline
	if s.depth > 0 {
		kind = NL
	}
	s.emit(kind, "", Position{row, len(line)}, Position{row, len(line)})
	return nil
}

// indent emits INDENT/DEDENT tokens for a logical line starting at column col.
func (s *scanner) indent(row int, line string, col, first int) {
	top := s.indents[len(s.indents)-1]
	if col > top {
		s.indents = append(s.indents, col)
		s.emit(Indent, line[:first], Position{row, 0}, Position{row, first})
		return
	}
	for len(s.indents) > 1 && col < s.indents[len(s.indents)-1] {
		s.indents = s.indents[:len(s.indents)-1]
		s.emit(Dedent, "", Position{row, first}, Position{row, first})
	}
}

func (s *scanner) scanOperator(row int, line string, pos, size int) int {
	rest := line[pos:]
	for _, group := range [][]string{threeCharOps, twoCharOps} {
		for _, op := range group {
			if strings.HasPrefix(rest, op) {
				s.emit(Op, op, Position{row, pos}, Position{row, pos + len(op)})
				return pos + len(op)
			}
		}
	}

	ch := line[pos]
	if size == 1 && strings.IndexByte(singleCharOps, ch) >= 0 {
		switch ch {
		case '(', '[', '{':
			s.depth++
		case ')', ']', '}':
			s.depth--
		}
		s.emit(Op, line[pos:pos+1], Position{row, pos}, Position{row, pos + 1})
		return pos + 1
	}

	s.emit(ErrorToken, line[pos:pos+size], Position{row, pos}, Position{row, pos + size})
	return pos + size
}

// startString scans a string literal whose prefix starts at start and whose
// opening quote is at quotePos. It returns the position after the literal, or
// leaves s.str set when the literal continues on the next line.
func (s *scanner) startString(row int, line string, start, quotePos int) (int, error) {
	quote := line[quotePos : quotePos+1]
	triple := strings.HasPrefix(line[quotePos:], strings.Repeat(quote, 3))
	if triple {
		quote = strings.Repeat(quote, 3)
	}
	bodyStart := quotePos + len(quote)

	if end, ok := findStringEnd(line, bodyStart, quote); ok {
		s.emit(String, line[start:end], Position{row, start}, Position{row, end})
		return end, nil
	}

	if !triple && !strings.HasSuffix(line, `\`) {
		return 0, &LexError{Row: row, Col: start, Msg: "unterminated string literal"}
	}

	s.str = &openString{start: Position{row, start}, quote: quote, triple: triple}
	s.str.text.WriteString(line[start:])
	return len(line), nil
}

// continueString resumes an open string literal on a new line.
func (s *scanner) continueString(row int, line string) (int, bool, error) {
	end, ok := findStringEnd(line, 0, s.str.quote)
	if !ok {
		if !s.str.triple && !strings.HasSuffix(line, `\`) {
			start := s.str.start
			s.str = nil
			return 0, false, &LexError{Row: start.Row, Col: start.Col, Msg: "unterminated string literal"}
		}
		s.str.text.WriteString("\n")
		s.str.text.WriteString(line)
		return 0, false, nil
	}

	s.str.text.WriteString("\n")
	s.str.text.WriteString(line[:end])
	s.emit(String, s.str.text.String(), s.str.start, Position{row, end})
	s.str = nil
	return end, true, nil
}

func (s *scanner) finish() ([]Token, error) {
	eof := Position{len(s.lines) + 1, 0}
	if s.str != nil {
		return s.tokens, &LexError{Row: s.str.start.Row, Col: s.str.start.Col, Msg: "EOF in multi-line string"}
	}
	if s.depth > 0 || s.continued {
		return s.tokens, &LexError{Row: eof.Row, Col: eof.Col, Msg: "EOF in multi-line statement"}
	}
	for len(s.indents) > 1 {
		s.indents = s.indents[:len(s.indents)-1]
		s.emit(Dedent, "", eof, eof)
	}
	s.emit(EndMarker, "", eof, eof)
	return s.tokens, nil
}

// findStringEnd returns the index just past the closing quote, honouring escapes.
func findStringEnd(line string, from int, quote string) (int, bool) {
	for i := from; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(line[i:], quote) {
			return i + len(quote), true
		}
	}
	return 0, false
}

func measureIndent(line string) (col, pos int) {
	for pos < len(line) {
		switch line[pos] {
		case ' ':
			col++
		case '\t':
			col = (col/8 + 1) * 8
		case '\f':
			col = 0
		default:
			return col, pos
		}
		pos++
	}
	return col, pos
}

func scanName(line string, pos int) int {
	for pos < len(line) {
		r, size := utf8.DecodeRuneInString(line[pos:])
		if !isIdentPart(r) {
			break
		}
		pos += size
	}
	return pos
}

func scanNumber(line string, pos int) int {
	if line[pos] == '0' && pos+1 < len(line) && strings.ContainsRune("xXoObB", rune(line[pos+1])) {
		pos += 2
		for pos < len(line) && (isHex(line[pos]) || line[pos] == '_') {
			pos++
		}
		return pos
	}

	digits := func() {
		for pos < len(line) && (isDigit(line[pos]) || line[pos] == '_') {
			pos++
		}
	}
	digits()
	if pos < len(line) && line[pos] == '.' {
		pos++
		digits()
	}
	if pos < len(line) && (line[pos] == 'e' || line[pos] == 'E') {
		next := pos + 1
		if next < len(line) && (line[next] == '+' || line[next] == '-') {
			next++
		}
		if next < len(line) && isDigit(line[next]) {
			pos = next
			digits()
		}
	}
	if pos < len(line) && (line[pos] == 'j' || line[pos] == 'J') {
		pos++
	}
	return pos
}

func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return isIdentStart(r) || unicode.IsDigit(r) }
