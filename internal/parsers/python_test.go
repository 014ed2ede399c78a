package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for PythonParser:
// - Find lambdas passed to namespace decorators, with accurate lines and columns
// - Resolve names to module-level defs and lambda assignments
// - Find lambdas passed as keyword arguments and inside class bodies
// - Find lambdas in plain contract calls, not only decorators
// - Ignore calls rooted at other namespaces and non-predicate arguments
// - Handle invalid/non-existent files gracefully
// - Handle empty files and syntax errors without failing
// - Respect context cancellation
// - Sites report their source location

const fixture = "../../testdata/python/contracts.py"

func TestPythonParser_FindsContractSites(t *testing.T) {
	t.Parallel()

	parser := NewPythonParser("deal")
	sites, err := parser.ParseFile(context.Background(), fixture)
	require.NoError(t, err)

	want := []Site{
		{File: fixture, Line: 12, Column: 10, CallLine: 12, Contract: "deal.pre", Kind: KindLambda},
		{File: fixture, Line: 13, Column: 11, CallLine: 13, Contract: "deal.post", Kind: KindLambda},
		{File: fixture, Line: 5, Column: 0, CallLine: 18, Contract: "deal.pre", Kind: KindFunction, Name: "is_positive"},
		{File: fixture, Line: 9, Column: 0, CallLine: 19, Contract: "deal.ensure", Kind: KindAssigned, Name: "non_negative"},
		{File: fixture, Line: 25, Column: 4, CallLine: 25, Contract: "deal.pre", Kind: KindLambda},
		{File: fixture, Line: 37, Column: 24, CallLine: 37, Contract: "deal.inv", Kind: KindLambda},
		{File: fixture, Line: 42, Column: 19, CallLine: 42, Contract: "deal.pre", Kind: KindLambda},
		{File: fixture, Line: 46, Column: 4, CallLine: 46, Contract: "deal.pre", Kind: KindLambda},
	}
	assert.Equal(t, want, sites)
}

func TestPythonParser_OtherNamespaces(t *testing.T) {
	t.Parallel()

	parser := NewPythonParser("other")
	sites, err := parser.ParseFile(context.Background(), fixture)
	require.NoError(t, err)

	require.Len(t, sites, 1)
	assert.Equal(t, 31, sites[0].Line)
	assert.Equal(t, "other.pre", sites[0].Contract)
}

func TestPythonParser_IgnoresNonPredicates(t *testing.T) {
	t.Parallel()

	src := []byte(`import deal

limit = 10
helper = make_helper()

@deal.pre(limit)
@deal.pre(helper)
@deal.pre(undefined)
@deal.raises(ValueError)
@deal
@pre(lambda x: x)
def f(x):
    return x

deal(lambda x: x)
`)
	sites, err := NewPythonParser("deal").FindSites(context.Background(), "inline.py", src)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestPythonParser_LaterBindingWins(t *testing.T) {
	t.Parallel()

	src := []byte(`import deal

check = lambda x: x > 0
check = None

valid = lambda x: x
valid = lambda x: x > 1

@deal.pre(check)
@deal.pre(valid)
def f(x):
    return x
`)
	sites, err := NewPythonParser("deal").FindSites(context.Background(), "inline.py", src)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "valid", sites[0].Name)
	assert.Equal(t, 7, sites[0].Line)
}

func TestPythonParser_InvalidFile(t *testing.T) {
	t.Parallel()

	_, err := NewPythonParser("deal").ParseFile(context.Background(), "does/not/exist.py")
	assert.Error(t, err)
}

func TestPythonParser_EmptyAndBrokenSource(t *testing.T) {
	t.Parallel()

	parser := NewPythonParser("deal")

	sites, err := parser.FindSites(context.Background(), "empty.py", []byte{})
	require.NoError(t, err)
	assert.Empty(t, sites)

	sites, err = parser.FindSites(context.Background(), "broken.py", []byte("@deal.pre(lambda x: x > 0)\ndef ok(x):\n    return x\n\ndef broken(:\n    pass\n"))
	require.NoError(t, err)
	require.NotEmpty(t, sites)
	assert.Equal(t, 1, sites[0].Line)
}

func TestPythonParser_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPythonParser("deal").FindSites(ctx, "x.py", []byte("x = 1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSite_SourceLocation(t *testing.T) {
	t.Parallel()

	loc, ok := Site{File: "a.py", Line: 3}.SourceLocation()
	assert.True(t, ok)
	assert.Equal(t, "a.py:3", loc.String())
	assert.Equal(t, "a.py:3", Site{File: "a.py", Line: 3}.String())

	_, ok = Site{File: "a.py"}.SourceLocation()
	assert.False(t, ok)
}
