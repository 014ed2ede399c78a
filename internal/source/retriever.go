package source

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/maypok86/otter"
)

var (
	// ErrNoSource indicates the file behind a location cannot be read.
	ErrNoSource = errors.New("source not available")

	// ErrLineOutOfRange indicates a location past the end of its file.
	ErrLineOutOfRange = errors.New("line out of range")
)

// DefaultMaxFiles is the number of files a FileRetriever keeps in memory.
const DefaultMaxFiles = 256

// Retriever resolves a location to the dedented source lines of the block
// starting there.
type Retriever interface {
	Lines(loc Location) ([]string, error)
}

type fileEntry struct {
	modTime time.Time
	size    int64
	lines   []string
}

// FileRetriever reads predicate source from disk. File contents are cached and
// revalidated against the file's modification time and size on every lookup.
type FileRetriever struct {
	cache otter.Cache[string, fileEntry]
}

// NewFileRetriever creates a retriever caching up to maxFiles files.
// A non-positive maxFiles uses DefaultMaxFiles.
func NewFileRetriever(maxFiles int) (*FileRetriever, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	cache, err := otter.MustBuilder[string, fileEntry](maxFiles).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}
	return &FileRetriever{cache: cache}, nil
}

// Lines implements Retriever.
func (r *FileRetriever) Lines(loc Location) ([]string, error) {
	if !loc.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLocation, loc)
	}

	lines, err := r.fileLines(loc.File)
	if err != nil {
		return nil, err
	}
	if loc.Line > len(lines) {
		return nil, fmt.Errorf("%w: %s has %d lines", ErrLineOutOfRange, loc, len(lines))
	}

	return Dedent(Block(lines[loc.Line-1:])), nil
}

// Invalidate drops cached contents for the given files.
func (r *FileRetriever) Invalidate(paths ...string) {
	for _, path := range paths {
		r.cache.Delete(path)
	}
}

// Close releases the cache.
func (r *FileRetriever) Close() {
	r.cache.Close()
}

func (r *FileRetriever) fileLines(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSource, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNoSource, path)
	}

	if entry, ok := r.cache.Get(path); ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.lines, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSource, err)
	}

	lines := SplitLines(string(data))
	r.cache.Set(path, fileEntry{modTime: info.ModTime(), size: info.Size(), lines: lines})
	return lines, nil
}

// SplitLines splits text into lines without terminators. A trailing newline
// does not produce an extra empty line.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
