// Package scan finds contract predicates in a source tree and renders each one.
package scan

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mvp-joe/predsrc/internal/parsers"
)

// SiteFinder locates predicates in one file.
type SiteFinder interface {
	ParseFile(ctx context.Context, filePath string) ([]parsers.Site, error)
}

// Describer renders a located predicate; "" means no rendering is available.
type Describer interface {
	Describe(v any) string
}

// Result is one predicate site with its rendered expression.
type Result struct {
	ID string `json:"id"`
	parsers.Site
	Expression string `json:"expression"`
}

// Stats summarises one scan.
type Stats struct {
	Files    int           `json:"files"`
	Sites    int           `json:"sites"`
	Rendered int           `json:"rendered"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Scanner renders every predicate site in a set of files.
type Scanner struct {
	finder    SiteFinder
	describer Describer
	progress  ProgressReporter
}

// NewScanner creates a scanner. A nil progress reporter reports nothing.
func NewScanner(finder SiteFinder, describer Describer, progress ProgressReporter) *Scanner {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	return &Scanner{
		finder:    finder,
		describer: describer,
		progress:  progress,
	}
}

// Scan parses files in order and renders their predicate sites. Files that
// cannot be read or parsed are logged and skipped. Scan stops with the
// context's error when it is cancelled.
func (s *Scanner) Scan(ctx context.Context, files []string) ([]Result, error) {
	start := time.Now()
	stats := &Stats{}
	results := []Result{}

	s.progress.OnScanStart(len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		sites, err := s.finder.ParseFile(ctx, file)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			log.Printf("Warning: failed to scan %s: %v", file, err)
			stats.Skipped++
			s.progress.OnFileScanned(file, 0)
			continue
		}

		for _, site := range sites {
			expr := s.describer.Describe(site)
			if expr != "" {
				stats.Rendered++
			}
			results = append(results, Result{
				ID:         SiteID(site),
				Site:       site,
				Expression: expr,
			})
		}
		stats.Files++
		stats.Sites += len(sites)
		s.progress.OnFileScanned(file, len(sites))
	}

	stats.Duration = time.Since(start)
	s.progress.OnComplete(stats)
	return results, nil
}

// SiteID returns a stable identifier for a site, derived from its file,
// position, call line and contract.
func SiteID(site parsers.Site) string {
	key := fmt.Sprintf("%s:%d:%d:%d:%s", site.File, site.Line, site.Column, site.CallLine, site.Contract)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// String formats a result the way `predsrc scan` prints it.
func (r Result) String() string {
	expr := r.Expression
	if expr == "" {
		expr = "<unavailable>"
	}
	return fmt.Sprintf("%s: %s: %s", r.Site, r.Contract, expr)
}
