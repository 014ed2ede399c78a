package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/mvp-joe/predsrc/internal/config"
	"github.com/mvp-joe/predsrc/internal/parsers"
	"github.com/mvp-joe/predsrc/internal/scan"
	"github.com/mvp-joe/predsrc/internal/source"
	"github.com/mvp-joe/predsrc/internal/storage"
	"github.com/mvp-joe/predsrc/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	scanJSON   bool
	scanQuiet  bool
	scanWatch  bool
	scanNoSave bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [DIR]",
	Short: "List every contract predicate under a directory",
	Long: `Discover Python files under DIR (default: the current directory), find the
predicates passed to contract decorators and print each one as

  path:line: contract: expression

Predicates that cannot be rendered print <unavailable>. Results are stored in
the project's results database for 'predsrc report' and the MCP server unless
--no-save is given. With --watch, changed files are rescanned until interrupted.

Examples:
  predsrc scan
  predsrc scan src --json
  predsrc scan --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print one JSON object per predicate")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "suppress progress output")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "rescan files as they change")
	scanCmd.Flags().BoolVar(&scanNoSave, "no-save", false, "do not store results in the results database")
	rootCmd.AddCommand(scanCmd)
}

type scanOptions struct {
	JSON  bool
	Quiet bool
	Watch bool
	Save  bool
}

func runScan(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return executeScan(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), dir, cfg, scanOptions{
		JSON:  scanJSON,
		Quiet: scanQuiet,
		Watch: scanWatch,
		Save:  !scanNoSave,
	})
}

// executeScan scans dir, prints the results to out and progress to errOut.
func executeScan(ctx context.Context, out, errOut io.Writer, dir string, cfg *config.Config, opts scanOptions) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	fd, err := scan.NewFileDiscovery(root, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return fmt.Errorf("invalid path patterns: %w", err)
	}

	extractor, retriever, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer retriever.Close()

	var store *storage.Store
	if opts.Save {
		store, err = storage.OpenStore(cfg.ResolveDBPath(dir))
		if err != nil {
			return fmt.Errorf("failed to open results database: %w", err)
		}
		defer store.Close()
	}

	finder := parsers.NewPythonParser(cfg.Contracts.Namespaces...)
	progress := NewCLIProgressReporter(errOut, opts.Quiet)
	scanner := scan.NewScanner(finder, extractor, progress)

	progress.OnDiscoveryStart()
	files, err := fd.DiscoverFiles()
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}
	progress.OnDiscoveryComplete(len(files))

	results, err := scanner.Scan(ctx, files)
	if err != nil {
		return err
	}
	if err := printResults(out, results, opts.JSON); err != nil {
		return err
	}

	session := newScanSession(scan.NewScanner(finder, extractor, nil), retriever)
	session.set(results)
	if err := saveScan(ctx, store, root, cfg.Storage.KeepScans, session.results()); err != nil {
		return err
	}

	if !opts.Watch {
		return nil
	}

	w, err := watcher.NewFileWatcher([]string{root}, watcher.Options{
		Match:    fd.Matches,
		SkipDir:  fd.IgnoresDir,
		Debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	defer w.Stop()

	// batches arriving while a rescan runs are merged into the next one
	var mu sync.Mutex
	var pending []string
	notify := make(chan struct{}, 1)
	if err := w.Start(ctx, func(files []string) {
		mu.Lock()
		pending = append(pending, files...)
		mu.Unlock()
		select {
		case notify <- struct{}{}:
		default:
		}
	}); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	log.Printf("Watching %s for changes (Ctrl+C to stop)", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-notify:
			mu.Lock()
			files := pending
			pending = nil
			mu.Unlock()

			w.Pause()
			changed, err := session.rescan(ctx, files)
			if err == nil {
				err = printResults(out, changed, opts.JSON)
			}
			if err == nil {
				err = saveScan(ctx, store, root, cfg.Storage.KeepScans, session.results())
			}
			w.Resume()

			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				log.Printf("Warning: rescan failed: %v", err)
			}
		}
	}
}

// printResults writes results as text lines or as JSON lines.
func printResults(w io.Writer, results []scan.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
		}
		return nil
	}
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

// saveScan stores results and prunes old scans. A nil store saves nothing.
func saveScan(ctx context.Context, store *storage.Store, root string, keep int, results []scan.Result) error {
	if store == nil {
		return nil
	}

	scanID, err := store.SaveScan(ctx, root, results)
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	if verbose {
		log.Printf("Saved scan %s (%d predicates)", scanID, len(results))
	}

	if keep > 0 {
		if _, err := store.PruneScans(ctx, keep); err != nil {
			return fmt.Errorf("failed to prune scans: %w", err)
		}
	}
	return nil
}

// scanSession keeps the latest results per file so a watch only rescans
// what changed.
type scanSession struct {
	scanner   *scan.Scanner
	retriever *source.FileRetriever
	byFile    map[string][]scan.Result
}

func newScanSession(scanner *scan.Scanner, retriever *source.FileRetriever) *scanSession {
	return &scanSession{
		scanner:   scanner,
		retriever: retriever,
		byFile:    make(map[string][]scan.Result),
	}
}

// set replaces the session's results.
func (s *scanSession) set(results []scan.Result) {
	s.byFile = make(map[string][]scan.Result)
	for _, r := range results {
		s.byFile[r.File] = append(s.byFile[r.File], r)
	}
}

// rescan refreshes the given files and returns their new results. Files that
// no longer exist drop out of the session.
func (s *scanSession) rescan(ctx context.Context, files []string) ([]scan.Result, error) {
	var existing []string
	seen := make(map[string]bool)
	for _, file := range files {
		file = filepath.Clean(file)
		if seen[file] {
			continue
		}
		seen[file] = true
		s.retriever.Invalidate(file)
		delete(s.byFile, file)
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}

	results, err := s.scanner.Scan(ctx, existing)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		s.byFile[r.File] = append(s.byFile[r.File], r)
	}
	return results, nil
}

// results returns every result ordered by file.
func (s *scanSession) results() []scan.Result {
	files := make([]string, 0, len(s.byFile))
	for file := range s.byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	all := []scan.Result{}
	for _, file := range files {
		all = append(all, s.byFile[file]...)
	}
	return all
}
