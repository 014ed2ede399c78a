package source

import "github.com/mvp-joe/predsrc/internal/lexer"

// Block returns the leading lines of lines that form one block:
//   - a lambda ends at the end of its logical line;
//   - decorators are skipped up to the decorated def or class;
//   - a def or class ends when indentation drops back to its own level.
//
// lines usually run from the predicate's first line to the end of its file.
// Input that stops lexing early yields the lines seen so far (at least one).
func Block(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}

	tokens, _ := lexer.Scan(lines)
	f := &blockFinder{bodyCol0: -1, last: 1}
	for _, tok := range tokens {
		if f.eat(tok) {
			break
		}
	}
	return lines[:min(f.last, len(lines))]
}

type blockFinder struct {
	indent      int
	started     bool
	lambda      bool
	passline    bool
	indecorator bool
	bodyCol0    int
	last        int
}

// eat consumes one token and reports whether the block has ended.
func (f *blockFinder) eat(tok lexer.Token) bool {
	switch {
	case !f.started && !f.indecorator:
		if tok.Is("@") {
			f.indecorator = true
		} else if tok.Kind == lexer.Name && (tok.Text == "def" || tok.Text == "class" || tok.Text == "lambda") {
			f.lambda = tok.Text == "lambda"
			f.started = true
		}
		f.passline = true
	case tok.Is("("):
	case tok.Is(")"):
		f.indecorator = false
	case tok.Kind == lexer.Newline:
		f.passline = false
		f.last = tok.Start.Row
		if f.lambda {
			return true
		}
		f.indecorator = false
	case f.passline:
	case tok.Kind == lexer.Indent:
		if f.bodyCol0 < 0 && f.started {
			f.bodyCol0 = tok.End.Col
		}
		f.indent++
		f.passline = true
	case tok.Kind == lexer.Dedent:
		f.indent--
		if f.indent <= 0 {
			return true
		}
	case tok.Kind == lexer.Comment:
		// comments indented at least as deep as the body belong to it
		if f.bodyCol0 >= 0 && tok.Start.Col >= f.bodyCol0 {
			f.last = tok.Start.Row
		}
	case f.indent == 0 && tok.Kind != lexer.NL:
		return true
	}
	return false
}
