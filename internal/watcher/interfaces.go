package watcher

import (
	"context"
	"time"
)

// DefaultDebounce is the quiet period before changes are reported.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Options selects what a FileWatcher reports.
type Options struct {
	// Match reports whether a changed file is of interest. Nil matches every file.
	Match func(path string) bool

	// SkipDir reports whether a directory is left unwatched, with everything below it.
	SkipDir func(path string) bool

	// Debounce is the quiet period before firing. Zero uses DefaultDebounce.
	Debounce time.Duration
}
