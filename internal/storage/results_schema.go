package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the version of the results schema written by this package.
const SchemaVersion = "1"

// ErrSchemaVersion indicates a results database written with another schema version.
var ErrSchemaVersion = errors.New("unsupported results schema version")

const createStoreMetadataTable = `
CREATE TABLE IF NOT EXISTS store_metadata (
	key         TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	updated_at  TEXT NOT NULL
)`

const createScansTable = `
CREATE TABLE IF NOT EXISTS scans (
	scan_id     TEXT PRIMARY KEY,
	root        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	file_count  INTEGER NOT NULL DEFAULT 0,
	site_count  INTEGER NOT NULL DEFAULT 0
)`

const createPredicatesTable = `
CREATE TABLE IF NOT EXISTS predicates (
	scan_id     TEXT NOT NULL REFERENCES scans(scan_id) ON DELETE CASCADE,
	site_id     TEXT NOT NULL,
	file_path   TEXT NOT NULL,
	line        INTEGER NOT NULL,
	column_num  INTEGER NOT NULL,
	contract    TEXT NOT NULL,
	kind        TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	expression  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (scan_id, site_id)
)`

var resultsIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_predicates_file ON predicates(scan_id, file_path, line)`,
	`CREATE INDEX IF NOT EXISTS idx_predicates_contract ON predicates(scan_id, contract)`,
	`CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at)`,
}

// createResultsSchema creates the scan result tables. It is idempotent.
// Must be called with SQLite PRAGMA foreign_keys = ON.
func createResultsSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"store_metadata", createStoreMetadataTable},
		{"scans", createScansTable},
		{"predicates", createPredicatesTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range resultsIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	// Existing databases keep their recorded version
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO store_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap store_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}
	if version != SchemaVersion {
		return fmt.Errorf("%w: %s (want %s)", ErrSchemaVersion, version, SchemaVersion)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from store_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check store_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM store_metadata WHERE key = 'schema_version'").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("schema_version key not found in store_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}
