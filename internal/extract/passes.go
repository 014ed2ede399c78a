package extract

import "github.com/mvp-joe/predsrc/internal/lexer"

// Pass recognises one token shape. Match returns the span of the sub-expression
// to keep; false means the shape is absent and the lines pass through unchanged.
type Pass interface {
	Name() string
	Match(tokens []lexer.Token) (Span, bool)
}

// DecoratorArgs matches `[@]ns.attr...(args)` for a recognised namespace and
// keeps args.
type DecoratorArgs struct {
	Namespaces []string
}

func (DecoratorArgs) Name() string { return "decorator" }

func (p DecoratorArgs) Match(tokens []lexer.Token) (Span, bool) {
	if len(tokens) > 0 && tokens[0].Is("@") {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 || tokens[0].Kind != lexer.Name || !p.recognises(tokens[0].Text) {
		return Span{}, false
	}

	// the call must follow the attribute chain directly
	open := 1
	for open+1 < len(tokens) && tokens[open].Is(".") && tokens[open+1].Kind == lexer.Name {
		open += 2
	}
	if open == 1 || open >= len(tokens) || !tokens[open].Is("(") {
		return Span{}, false
	}
	closing := matchingParen(tokens, open)
	if closing < open+2 {
		// no matching close, or an empty argument list
		return Span{}, false
	}
	return Span{First: tokens[open+1], Last: tokens[closing-1]}, true
}

func (p DecoratorArgs) recognises(name string) bool {
	for _, ns := range p.Namespaces {
		if ns == name {
			return true
		}
	}
	return false
}

// Assignment matches `name[.name...] = expr` and keeps expr. Chained targets
// (`a = b.c = expr`) keep the expression after the last target.
type Assignment struct{}

func (Assignment) Name() string { return "assignment" }

func (Assignment) Match(tokens []lexer.Token) (Span, bool) {
	split := -1
	names := 0

scan:
	for i, tok := range tokens {
		switch {
		case tok.Kind == lexer.Name && !lexer.IsKeyword(tok.Text):
			names++
		case tok.Is("."):
		case tok.IsLineBreak():
			// a completed assignment statement ends the target chain
			if split >= 0 && tok.Kind == lexer.Newline {
				break scan
			}
		case tok.Kind == lexer.Op && assignOps[tok.Text]:
			if names == 0 {
				break scan
			}
			split = i
			names = 0
		default:
			break scan
		}
	}

	if split < 0 || split+1 >= len(tokens) {
		return Span{}, false
	}
	return Span{First: tokens[split+1], Last: tokens[len(tokens)-1]}, true
}

var assignOps = map[string]bool{
	"=": true, ":=": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true,
	"**=": true, "@=": true, "&=": true, "|=": true, "^=": true, ">>=": true, "<<=": true,
}

// ParenLambda matches `(lambda ...)` and keeps the lambda literal.
type ParenLambda struct{}

func (ParenLambda) Name() string { return "lambda" }

func (ParenLambda) Match(tokens []lexer.Token) (Span, bool) {
	if len(tokens) < 2 || !tokens[0].Is("(") || !isLambda(tokens[1]) {
		return Span{}, false
	}
	closing := matchingParen(tokens, 0)
	if closing < 2 {
		return Span{}, false
	}
	return Span{First: tokens[1], Last: tokens[closing-1]}, true
}

// LambdaBody matches a bare lambda literal and keeps its body. Nested lambda
// heads (`lambda x: lambda y: ...`) are peeled as well. The body ends before
// a depth-0 comma or an unmatched closing bracket, so the rest of an
// enclosing call is dropped.
type LambdaBody struct{}

func (LambdaBody) Name() string { return "lambda-body" }

func (LambdaBody) Match(tokens []lexer.Token) (Span, bool) {
	if len(tokens) == 0 || !isLambda(tokens[0]) {
		return Span{}, false
	}

	start := -1
	for head := 0; head < len(tokens) && isLambda(tokens[head]); {
		colon := headEnd(tokens, head)
		if colon < 0 || colon+1 >= len(tokens) {
			break
		}
		start = colon + 1
		head = start
	}
	if start < 0 {
		return Span{}, false
	}

	end := bodyEnd(tokens, start)
	for end > start && tokens[end-1].IsLineBreak() {
		end--
	}
	if end == start {
		return Span{}, false
	}
	return Span{First: tokens[start], Last: tokens[end-1]}, true
}

// bodyEnd returns the index just past the lambda body starting at
// tokens[from]: the body stops at a depth-0 comma or at a closing bracket
// opened before the fragment.
func bodyEnd(tokens []lexer.Token, from int) int {
	depth := 0
	for i := from; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != lexer.Op {
			continue
		}
		switch tok.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth < 0 {
				return i
			}
		case ",":
			if depth == 0 {
				return i
			}
		}
	}
	return len(tokens)
}

// headEnd returns the index of the `:` closing the parameter list of the
// lambda at tokens[from], or -1.
func headEnd(tokens []lexer.Token, from int) int {
	depth := 0
	for i := from + 1; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != lexer.Op {
			continue
		}
		switch tok.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ":":
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchingParen returns the index of the `)` closing the `(` at tokens[open],
// or -1 when the fragment never closes it.
func matchingParen(tokens []lexer.Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != lexer.Op {
			continue
		}
		switch tok.Text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isLambda(tok lexer.Token) bool {
	return tok.Kind == lexer.Name && tok.Text == "lambda"
}
