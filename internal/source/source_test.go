package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for source retrieval:
// - ParseLocation accepts FILE:LINE and rejects malformed references
// - Unwrap peels one Adapter layer and leaves other values alone
// - Func reports its location only when valid
// - Dedent removes the common margin, keeps relative indentation, blanks whitespace-only lines
// - Block ends a lambda at its logical line, including bracket continuation lines
// - Block skips decorators and ends a def when indentation drops
// - Block keeps at least one line for input that does not lex
// - FileRetriever returns the dedented block at a location
// - FileRetriever reports missing files and out-of-range lines
// - FileRetriever notices file changes between lookups

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseLocation(t *testing.T) {
	t.Parallel()

	loc, err := ParseLocation("pkg/contracts.py:12")
	require.NoError(t, err)
	assert.Equal(t, Location{File: "pkg/contracts.py", Line: 12}, loc)
	assert.Equal(t, "pkg/contracts.py:12", loc.String())

	for _, bad := range []string{"contracts.py", "contracts.py:", ":12", "contracts.py:zero", "contracts.py:0"} {
		_, err := ParseLocation(bad)
		assert.ErrorIs(t, err, ErrInvalidLocation, bad)
	}
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	inner := Func{Name: "positive", Loc: Location{File: "a.py", Line: 3}}
	assert.Equal(t, inner, Unwrap(Adapter{Validator: inner, Message: "must be positive"}))
	assert.Equal(t, inner, Unwrap(inner))
	assert.Equal(t, 42, Unwrap(42))
}

func TestFunc_SourceLocation(t *testing.T) {
	t.Parallel()

	_, ok := Func{Name: "builtin"}.SourceLocation()
	assert.False(t, ok)

	loc, ok := Func{Loc: Location{File: "a.py", Line: 1}}.SourceLocation()
	assert.True(t, ok)
	assert.Equal(t, "a.py", loc.File)
}

func TestDedent(t *testing.T) {
	t.Parallel()

	got := Dedent([]string{
		"    @deal.pre(lambda x: x > 0)",
		"    def f(x):",
		"   ",
		"        return x",
	})
	assert.Equal(t, []string{
		"@deal.pre(lambda x: x > 0)",
		"def f(x):",
		"",
		"    return x",
	}, got)

	// mixed tabs and spaces share no margin
	assert.Equal(t, []string{"\tx", "  y"}, Dedent([]string{"\tx", "  y"}))
}

func TestBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines []string
		want  int
	}{
		{
			name:  "lambda ends at its logical line",
			lines: []string{"check = lambda x: x > 0", "other = 1"},
			want:  1,
		},
		{
			name:  "lambda continued inside brackets",
			lines: []string{"check = lambda x: (x > 0", "    and x < 10)", "def f(x):", "    return x"},
			want:  2,
		},
		{
			name:  "lambda argument stops before the closing bracket line",
			lines: []string{"    lambda x: x > 0,", ")", "def f(x):", "    return x"},
			want:  1,
		},
		{
			name: "decorator lambda includes decorated function",
			lines: []string{
				"@deal.pre(lambda x: x > 0)",
				"@deal.post(lambda r: r < 10)",
				"def f(x):",
				"    return x",
				"",
				"y = 2",
			},
			want: 4,
		},
		{
			name:  "function ends when indentation drops",
			lines: []string{"def positive(x):", "    y = x", "    return y > 0", "z = 1"},
			want:  3,
		},
		{
			name:  "indented method",
			lines: []string{"    def check(self):", "        return self.x", "", "    def other(self):", "        pass"},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.lines[:tt.want], Block(tt.lines))
		})
	}
}

func TestBlock_UnlexableInputKeepsFirstLine(t *testing.T) {
	t.Parallel()

	lines := []string{`x = """never`, "closed"}
	assert.Equal(t, lines[:1], Block(lines))
	assert.Nil(t, Block(nil))
}

func TestFileRetriever_Lines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "contracts.py", `import deal

class Account:
    @deal.pre(lambda self, amount: amount > 0)  # deposits only
    def deposit(self, amount):
        self.balance += amount

    limit = lambda self: self.balance < 100
`)

	r, err := NewFileRetriever(8)
	require.NoError(t, err)
	defer r.Close()

	lines, err := r.Lines(Location{File: path, Line: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"@deal.pre(lambda self, amount: amount > 0)  # deposits only",
		"def deposit(self, amount):",
		"    self.balance += amount",
	}, lines)

	lines, err = r.Lines(Location{File: path, Line: 8})
	require.NoError(t, err)
	assert.Equal(t, []string{"limit = lambda self: self.balance < 100"}, lines)
}

func TestFileRetriever_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "short.py", "x = 1\n")

	r, err := NewFileRetriever(0)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Lines(Location{File: filepath.Join(dir, "missing.py"), Line: 1})
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = r.Lines(Location{File: path, Line: 5})
	assert.ErrorIs(t, err, ErrLineOutOfRange)

	_, err = r.Lines(Location{File: dir, Line: 1})
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = r.Lines(Location{})
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestFileRetriever_RevalidatesChangedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "v.py", "check = lambda x: x > 0\n")

	r, err := NewFileRetriever(4)
	require.NoError(t, err)
	defer r.Close()

	lines, err := r.Lines(Location{File: path, Line: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"check = lambda x: x > 0"}, lines)

	require.NoError(t, os.WriteFile(path, []byte("check = lambda x: x >= 10\n"), 0644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	lines, err = r.Lines(Location{File: path, Line: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"check = lambda x: x >= 10"}, lines)

	r.Invalidate(path)
	lines, err = r.Lines(Location{File: path, Line: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"check = lambda x: x >= 10"}, lines)
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb"))
	assert.Nil(t, SplitLines(""))
}
