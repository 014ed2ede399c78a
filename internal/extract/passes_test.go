package extract

import (
	"testing"

	"github.com/mvp-joe/predsrc/internal/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for narrowing passes:
// - SliceLines cuts columns on single and multi-line spans and clamps out-of-range positions
// - SliceLines leaves the input untouched and returns a copy for inverted spans
// - StripComments removes comments and the whitespace before them, also in input that does not lex
// - DecoratorArgs keeps the argument list of namespace calls, with nested parens
// - DecoratorArgs ignores other namespaces, missing parens and empty argument lists
// - Assignment keeps the right-hand side of plain, dotted, augmented and chained assignments
// - Assignment ignores comparisons, keyword arguments of lambdas and expressions without a target
// - ParenLambda strips the enclosing parens of a lambda literal
// - LambdaBody keeps the body after the parameter list, peeling nested lambdas
//   and stopping at a depth-0 comma or an unmatched closing bracket
// - Canonicalize joins single-line results, drops trailing commas and placeholders

func mustTokenize(t *testing.T, lines ...string) []lexer.Token {
	t.Helper()
	tokens, err := lexer.Tokenize(lines)
	require.NoError(t, err)
	return tokens
}

// narrow applies p to lines and returns the kept lines.
func narrow(t *testing.T, p Pass, lines ...string) ([]string, bool) {
	t.Helper()
	span, ok := p.Match(mustTokenize(t, lines...))
	if !ok {
		return nil, false
	}
	return SliceLines(lines, span.First, span.Last), true
}

func tok(startRow, startCol, endRow, endCol int) lexer.Token {
	return lexer.Token{
		Kind:  lexer.Name,
		Start: lexer.Position{Row: startRow, Col: startCol},
		End:   lexer.Position{Row: endRow, Col: endCol},
	}
}

func TestSliceLines(t *testing.T) {
	t.Parallel()

	lines := []string{"check = lambda x: (x > 0", "    and x < 10)  ", "tail"}

	t.Run("single line", func(t *testing.T) {
		t.Parallel()
		got := SliceLines(lines, tok(1, 8, 1, 14), tok(1, 18, 1, 24))
		assert.Equal(t, []string{"lambda x: (x > 0"}, got)
	})

	t.Run("multiple lines", func(t *testing.T) {
		t.Parallel()
		got := SliceLines(lines, tok(1, 18, 1, 19), tok(2, 14, 2, 15))
		assert.Equal(t, []string{"(x > 0", "    and x < 10)"}, got)
	})

	t.Run("positions past the end are clamped", func(t *testing.T) {
		t.Parallel()
		got := SliceLines(lines, tok(3, 0, 3, 4), tok(9, 0, 9, 99))
		assert.Equal(t, []string{"tail"}, got)
	})

	t.Run("inverted span returns a copy", func(t *testing.T) {
		t.Parallel()
		got := SliceLines(lines, tok(2, 4, 2, 7), tok(1, 0, 1, 5))
		assert.Equal(t, lines, got)
		got[0] = "changed"
		assert.Equal(t, "check = lambda x: (x > 0", lines[0])
	})
}

func TestStripComments(t *testing.T) {
	t.Parallel()

	got := StripComments([]string{
		"lambda x: x > 0,  # inline comment",
		"# whole line",
		"s = '# not a comment'",
	})
	assert.Equal(t, []string{"lambda x: x > 0,", "", "s = '# not a comment'"}, got)

	// the bracket never closes, yet the comment scanned before that is removed
	got = StripComments([]string{"check(  # open", "    x > 0,"})
	assert.Equal(t, []string{"check(", "    x > 0,"}, got)
}

func TestDecoratorArgs(t *testing.T) {
	t.Parallel()

	p := DecoratorArgs{Namespaces: []string{"deal", "contracts"}}

	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{"decorator", []string{"@deal.pre(lambda x: x > 0)"}, []string{"lambda x: x > 0"}},
		{"plain call", []string{"deal.pre(lambda x: x > 0, message='positive')"}, []string{"lambda x: x > 0, message='positive'"}},
		{"nested parens", []string{"@deal.pre(lambda x: len(x) > 0)"}, []string{"lambda x: len(x) > 0"}},
		{"second namespace", []string{"@contracts.require.all(lambda a: a)"}, []string{"lambda a: a"}},
		{
			"decorated function",
			[]string{"@deal.post(lambda r: r >= 0)", "def f(x):", "    return x"},
			[]string{"lambda r: r >= 0"},
		},
		{
			"arguments over several lines",
			[]string{"@deal.pre(", "    lambda x: x > 0,", ")"},
			[]string{"", "    lambda x: x > 0,"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := narrow(t, p, tt.lines...)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, line := range []string{
		"@other.pre(lambda x: x > 0)",
		"@deal.safe",
		"@deal.safe()",
		"@deal(lambda x: x)",
		"lambda x: x > 0",
	} {
		_, ok := p.Match(mustTokenize(t, line))
		assert.False(t, ok, line)
	}

	// the parameter list of a decorated function is not a decorator argument list
	_, ok := p.Match(mustTokenize(t, "@deal.pure", "def positive(x):", "    return x > 0"))
	assert.False(t, ok)
}

func TestAssignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"validator = x > 0", "x > 0"},
		{"self.check = lambda s: s.ok", "lambda s: s.ok"},
		{"total += amount", "amount"},
		{"a = b.c = lambda x: x", "lambda x: x"},
		{"check: lambda x: x", ""},
	}
	for _, tt := range tests {
		got, ok := narrow(t, Assignment{}, tt.line)
		if tt.want == "" {
			assert.False(t, ok, tt.line)
			continue
		}
		require.True(t, ok, tt.line)
		assert.Equal(t, []string{tt.want}, got, tt.line)
	}

	for _, line := range []string{
		"x == y",
		"x <= y",
		"lambda x=1: x",
		"= 1",
		"f(x) = 1",
		"(y := f(x))",
		"x > 0",
	} {
		_, ok := Assignment{}.Match(mustTokenize(t, line))
		assert.False(t, ok, line)
	}
}

func TestAssignment_MultipleStatementsAreNotReduced(t *testing.T) {
	t.Parallel()

	got, ok := narrow(t, Assignment{}, "a = 1", "b = 2")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "b = 2"}, got)
}

func TestParenLambda(t *testing.T) {
	t.Parallel()

	got, ok := narrow(t, ParenLambda{}, "(lambda x, y: x + y)")
	require.True(t, ok)
	assert.Equal(t, []string{"lambda x, y: x + y"}, got)

	got, ok = narrow(t, ParenLambda{}, "(lambda x: f(x)) and other")
	require.True(t, ok)
	assert.Equal(t, []string{"lambda x: f(x)"}, got)

	for _, line := range []string{"(x + y)", "lambda x: x", "(x) or (lambda y: y)"} {
		_, ok := ParenLambda{}.Match(mustTokenize(t, line))
		assert.False(t, ok, line)
	}
}

func TestLambdaBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"lambda x: x > 0", "x > 0"},
		{"lambda: True", "True"},
		{"lambda x, y=(1, 2): x in y", "x in y"},
		{"lambda x: {'a': x}", "{'a': x}"},
		{"lambda x: lambda y: x + y", "x + y"},
		{"lambda x: x[1:2]", "x[1:2]"},
		{"lambda x: x > 0)", "x > 0"},
		{"lambda x: x > 0, message='positive')", "x > 0"},
		{"lambda x: f(x, 1)]", "f(x, 1)"},
		{"lambda x: (x, 1), 2", "(x, 1)"},
	}
	for _, tt := range tests {
		got, ok := narrow(t, LambdaBody{}, tt.line)
		require.True(t, ok, tt.line)
		assert.Equal(t, []string{tt.want}, got, tt.line)
	}

	for _, line := range []string{"x > 0", "f(lambda x: x)", "lambda x: )"} {
		_, ok := LambdaBody{}.Match(mustTokenize(t, line))
		assert.False(t, ok, line)
	}
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "x > 0", Canonicalize([]string{"x > 0,"}, DefaultPlaceholder))
	assert.Equal(t, "x > 0", Canonicalize([]string{"  x > 0 ,  ", "", "  "}, DefaultPlaceholder))
	assert.Equal(t, "x > 0", Canonicalize([]string{"_.x > 0"}, DefaultPlaceholder))
	assert.Equal(t, "_.x > 0", Canonicalize([]string{"_.x > 0"}, ""))
	// removal is textual and reaches into string literals
	assert.Equal(t, "s == 'a'", Canonicalize([]string{"s == '_.a'"}, DefaultPlaceholder))
	assert.Equal(t, "", Canonicalize([]string{"a", "b"}, DefaultPlaceholder))
	assert.Equal(t, "", Canonicalize(nil, DefaultPlaceholder))
}
