// Package storage persists scan results in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/predsrc/internal/parsers"
	"github.com/mvp-joe/predsrc/internal/scan"
)

// ErrNoScans indicates the store holds no scan yet.
var ErrNoScans = errors.New("no scans stored")

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ScanInfo describes one stored scan.
type ScanInfo struct {
	ID        string    `json:"id"`
	Root      string    `json:"root"`
	StartedAt time.Time `json:"started_at"`
	Files     int       `json:"files"`
	Sites     int       `json:"sites"`
}

// Filter narrows the predicates returned by Store.Predicates.
// Empty fields match everything.
type Filter struct {
	Contract   string
	FilePrefix string
	Unrendered bool // only sites without an expression
}

// Store reads and writes scan results.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the results database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// foreign keys for every pooled connection, not just the first
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open database and creates the schema. The store takes
// ownership of db.
func NewStore(db *sql.DB) (*Store, error) {
	// Enable foreign keys (must be set for each connection)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := createResultsSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScan stores results as a new scan of root and returns its ID.
func (s *Store) SaveScan(ctx context.Context, root string, results []scan.Result) (string, error) {
	scanID := uuid.NewString()

	files := make(map[string]bool)
	for _, r := range results {
		files[r.File] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = sq.Insert("scans").
		Columns("scan_id", "root", "started_at", "file_count", "site_count").
		Values(scanID, root, time.Now().UTC().Format(timeLayout), len(files), len(results)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("insert scan: %w", err)
	}

	for _, r := range results {
		// the same name passed twice to one call is stored once
		_, err := sq.Insert("predicates").
			Options("OR IGNORE").
			Columns(
				"scan_id", "site_id", "file_path", "line", "column_num",
				"contract", "kind", "name", "expression",
			).
			Values(
				scanID, r.ID, r.File, r.Line, r.Column,
				r.Contract, string(r.Kind), r.Name, r.Expression,
			).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return "", fmt.Errorf("insert predicate %s: %w", r.Site, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit scan: %w", err)
	}
	return scanID, nil
}

// LatestScan returns the most recently stored scan.
func (s *Store) LatestScan(ctx context.Context) (*ScanInfo, error) {
	query, args, err := sq.Select("scan_id", "root", "started_at", "file_count", "site_count").
		From("scans").
		OrderBy("started_at DESC", "rowid DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var info ScanInfo
	var startedAt string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&info.ID, &info.Root, &startedAt, &info.Files, &info.Sites)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoScans
	}
	if err != nil {
		return nil, fmt.Errorf("query latest scan: %w", err)
	}

	info.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid scan timestamp %q: %w", startedAt, err)
	}
	return &info, nil
}

// Predicates returns the results of a scan ordered by file and line.
func (s *Store) Predicates(ctx context.Context, scanID string, filter Filter) ([]scan.Result, error) {
	builder := sq.Select(
		"site_id", "file_path", "line", "column_num",
		"contract", "kind", "name", "expression",
	).
		From("predicates").
		Where(sq.Eq{"scan_id": scanID}).
		OrderBy("file_path", "line", "column_num")

	if filter.Contract != "" {
		builder = builder.Where(sq.Eq{"contract": filter.Contract})
	}
	if filter.FilePrefix != "" {
		// literal, case-sensitive prefix
		builder = builder.Where(sq.Expr("substr(file_path, 1, ?) = ?",
			utf8.RuneCountInString(filter.FilePrefix), filter.FilePrefix))
	}
	if filter.Unrendered {
		builder = builder.Where(sq.Eq{"expression": ""})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predicates: %w", err)
	}
	defer rows.Close()

	results := []scan.Result{}
	for rows.Next() {
		var r scan.Result
		var kind string
		if err := rows.Scan(&r.ID, &r.File, &r.Line, &r.Column, &r.Contract, &kind, &r.Name, &r.Expression); err != nil {
			return nil, fmt.Errorf("scan predicate row: %w", err)
		}
		r.Kind = parsers.SiteKind(kind)
		results = append(results, r)
	}
	return results, rows.Err()
}

// PruneScans deletes all but the keep most recent scans.
func (s *Store) PruneScans(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	query := `DELETE FROM scans WHERE scan_id NOT IN (
		SELECT scan_id FROM scans ORDER BY started_at DESC, rowid DESC LIMIT ?
	)`
	res, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune scans: %w", err)
	}
	return res.RowsAffected()
}
