package lexer

import "fmt"

// Kind is the category of a scanned token.
type Kind uint8

const (
	Name Kind = iota
	Number
	String
	Op
	Comment
	Newline // end of a logical line
	NL      // non-logical line break (blank line, comment-only line, inside brackets)
	Indent
	Dedent
	EndMarker
	ErrorToken
)

var kindNames = [...]string{
	Name:       "NAME",
	Number:     "NUMBER",
	String:     "STRING",
	Op:         "OP",
	Comment:    "COMMENT",
	Newline:    "NEWLINE",
	NL:         "NL",
	Indent:     "INDENT",
	Dedent:     "DEDENT",
	EndMarker:  "ENDMARKER",
	ErrorToken: "ERRORTOKEN",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Structural reports whether tokens of this kind only describe layout.
func (k Kind) Structural() bool {
	return k == Indent || k == Dedent || k == EndMarker
}

// Position is a row/column pair. Rows are 1-based, columns are 0-based byte offsets.
type Position struct {
	Row int
	Col int
}

// Before reports whether p comes strictly before o in source order.
func (p Position) Before(o Position) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Col < o.Col
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Col)
}

// Token is a lexical unit. The span [Start, End) is half-open.
type Token struct {
	Kind  Kind
	Text  string
	Start Position
	End   Position
}

// Is reports whether t is an operator or name with the given text.
func (t Token) Is(text string) bool {
	return (t.Kind == Op || t.Kind == Name) && t.Text == text
}

// IsLineBreak reports whether t is a NEWLINE or NL token.
func (t Token) IsLineBreak() bool {
	return t.Kind == Newline || t.Kind == NL
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q %s-%s", t.Kind, t.Text, t.Start, t.End)
}

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// IsKeyword reports whether name is a reserved word of the host language.
func IsKeyword(name string) bool {
	return keywords[name]
}
