package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/predsrc/internal/extract"
	"github.com/mvp-joe/predsrc/internal/parsers"
	"github.com/mvp-joe/predsrc/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for scanning:
// - Discovery returns included files in lexical order, skipping ignored directories and .predsrc
// - Root-level files match "**/" patterns
// - Matches and IgnoresDir agree with DiscoverFiles for absolute and relative roots
// - Invalid glob patterns are rejected
// - Scanner renders every site, keeps unrendered sites with an empty expression
// - Scanner skips files that fail to parse and counts them
// - Scanner stops on context cancellation
// - Site IDs are stable and distinguish positions
// - End to end: real parser and extractor over the Python fixture

func createTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestFileDiscovery_DiscoverFiles(t *testing.T) {
	t.Parallel()

	root := createTree(t, map[string]string{
		"setup.py":                   "",
		"pkg/contracts.py":           "",
		"pkg/README.md":              "",
		"pkg/__pycache__/c.py":       "",
		".predsrc/config.yml":        "",
		".venv/lib/site.py":          "",
		"tests/test_contracts.py":    "",
		"pkg/sub/deep/validators.py": "",
	})

	fd, err := NewFileDiscovery(root, []string{"**/*.py"}, []string{"**/__pycache__/**", ".venv/**", "tests/**"})
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "pkg", "contracts.py"),
		filepath.Join(root, "pkg", "sub", "deep", "validators.py"),
		filepath.Join(root, "setup.py"),
	}, files)
}

func TestFileDiscovery_Matches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fd, err := NewFileDiscovery(root, []string{"**/*.py"}, []string{".venv/**"})
	require.NoError(t, err)

	assert.True(t, fd.Matches(filepath.Join(root, "pkg", "a.py")))
	assert.True(t, fd.Matches(filepath.Join(root, "setup.py")))
	assert.False(t, fd.Matches(filepath.Join(root, "pkg", "a.txt")))
	assert.False(t, fd.Matches(filepath.Join(root, ".venv", "lib", "a.py")))
	assert.False(t, fd.Matches(filepath.Join(root, ".predsrc", "a.py")))
	assert.False(t, fd.Matches(filepath.Join(filepath.Dir(root), "elsewhere.py")))
	assert.Equal(t, root, fd.Root())

	assert.True(t, fd.IgnoresDir(filepath.Join(root, ".venv")))
	assert.True(t, fd.IgnoresDir(filepath.Join(root, ".predsrc")))
	assert.False(t, fd.IgnoresDir(filepath.Join(root, "pkg")))
	assert.False(t, fd.IgnoresDir(root))
}

func TestFileDiscovery_RelativeRoot(t *testing.T) {
	t.Parallel()

	root := createTree(t, map[string]string{
		"src/a.py":          "",
		"src/build/x.py":    "",
		"src/venv/lib/y.py": "",
	})
	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, filepath.Join(root, "src"))
	require.NoError(t, err)
	require.False(t, filepath.IsAbs(rel))

	fd, err := NewFileDiscovery(rel, []string{"**/*.py"}, []string{"build/**", "venv/**"})
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(rel, "a.py")}, files)

	// paths as a watcher rooted at the same relative directory reports them
	assert.True(t, fd.Matches(filepath.Join(rel, "a.py")))
	assert.False(t, fd.Matches(filepath.Join(rel, "build", "x.py")))
	assert.False(t, fd.Matches(filepath.Join(rel, "venv", "lib", "y.py")))
	assert.True(t, fd.IgnoresDir(filepath.Join(rel, "build")))
	assert.True(t, fd.IgnoresDir(filepath.Join(rel, "venv")))
	assert.False(t, fd.IgnoresDir(rel))

	assert.True(t, fd.Matches(filepath.Join(root, "src", "a.py")))
	assert.False(t, fd.Matches(filepath.Join(root, "src", "build", "x.py")))
}

func TestFileDiscovery_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFileDiscovery(".", []string{"[unclosed"}, nil)
	assert.Error(t, err)
}

type fakeFinder struct {
	sites map[string][]parsers.Site
}

func (f *fakeFinder) ParseFile(ctx context.Context, filePath string) ([]parsers.Site, error) {
	sites, ok := f.sites[filePath]
	if !ok {
		return nil, errors.New("parse failed")
	}
	return sites, nil
}

type fakeDescriber map[int]string

func (f fakeDescriber) Describe(v any) string {
	return f[v.(parsers.Site).Line]
}

type recordingProgress struct {
	NoOpProgressReporter
	scanned []string
	stats   *Stats
}

func (r *recordingProgress) OnFileScanned(fileName string, sites int) {
	r.scanned = append(r.scanned, fileName)
}

func (r *recordingProgress) OnComplete(stats *Stats) {
	r.stats = stats
}

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	finder := &fakeFinder{sites: map[string][]parsers.Site{
		"a.py": {
			{File: "a.py", Line: 3, Contract: "deal.pre", Kind: parsers.KindLambda},
			{File: "a.py", Line: 7, Contract: "deal.post", Kind: parsers.KindFunction, Name: "check"},
		},
		"c.py": {},
	}}
	progress := &recordingProgress{}
	scanner := NewScanner(finder, fakeDescriber{3: "x > 0"}, progress)

	results, err := scanner.Scan(context.Background(), []string{"a.py", "b.py", "c.py"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "x > 0", results[0].Expression)
	assert.Equal(t, "deal.pre", results[0].Contract)
	assert.Equal(t, "", results[1].Expression)
	assert.Equal(t, "a.py:3: deal.pre: x > 0", results[0].String())
	assert.Equal(t, "a.py:7: deal.post: <unavailable>", results[1].String())

	assert.Equal(t, []string{"a.py", "b.py", "c.py"}, progress.scanned)
	require.NotNil(t, progress.stats)
	assert.Equal(t, 2, progress.stats.Files)
	assert.Equal(t, 2, progress.stats.Sites)
	assert.Equal(t, 1, progress.stats.Rendered)
	assert.Equal(t, 1, progress.stats.Skipped)
}

func TestScanner_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := NewScanner(&fakeFinder{}, fakeDescriber{}, nil)
	results, err := scanner.Scan(ctx, []string{"a.py"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestSiteID(t *testing.T) {
	t.Parallel()

	site := parsers.Site{File: "a.py", Line: 3, Column: 10, Contract: "deal.pre"}
	assert.Equal(t, SiteID(site), SiteID(site))
	assert.Len(t, SiteID(site), 36)

	moved := site
	moved.Column = 11
	assert.NotEqual(t, SiteID(site), SiteID(moved))
}

func TestScanner_Fixture(t *testing.T) {
	t.Parallel()

	retriever, err := source.NewFileRetriever(0)
	require.NoError(t, err)
	defer retriever.Close()

	fixture := "../../testdata/python/contracts.py"
	scanner := NewScanner(
		parsers.NewPythonParser(extract.DefaultNamespace),
		extract.New(extract.WithRetriever(retriever)),
		nil,
	)

	results, err := scanner.Scan(context.Background(), []string{fixture})
	require.NoError(t, err)

	got := map[int]string{}
	for _, r := range results {
		got[r.Line] = r.Expression
	}
	assert.Equal(t, "x > 0", got[12])
	assert.Equal(t, "", got[5])
	assert.Equal(t, "x >= 0", got[9])
	assert.Equal(t, "a < b", got[25])
	assert.Equal(t, "self.balance >= 0", got[37])
	assert.Equal(t, "result < 100", got[13])
	assert.Equal(t, "x > 0", got[46])
}
