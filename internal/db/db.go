package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/condense/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/condense.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.condense.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Create projects subdirectory for version artifacts
	projectsDir := filepath.Join(baseDir, "projects")
	if err := os.MkdirAll(projectsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create projects directory: %w", err)
	}
	_ = os.Chmod(projectsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "condense.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS sessions (
		  project_id     TEXT NOT NULL,
		  session_id     TEXT NOT NULL,
		  original_file  TEXT NOT NULL,
		  last_accessed  INTEGER NOT NULL,
		  created_at     INTEGER NOT NULL,
		  PRIMARY KEY (project_id, session_id)
		);

		CREATE TABLE IF NOT EXISTS compressions (
		  id                 TEXT PRIMARY KEY,
		  project_id         TEXT NOT NULL,
		  session_id         TEXT NOT NULL,
		  seq                INTEGER NOT NULL,
		  version_id         TEXT NOT NULL,
		  file               TEXT NOT NULL,
		  created_at         INTEGER NOT NULL,
		  settings_json      TEXT NOT NULL,
		  input_tokens       INTEGER NOT NULL,
		  input_messages     INTEGER NOT NULL,
		  output_tokens      INTEGER NOT NULL,
		  output_messages    INTEGER NOT NULL,
		  compression_ratio  REAL NOT NULL,
		  processing_time_ms INTEGER NOT NULL,
		  markdown_bytes     INTEGER NOT NULL,
		  jsonl_bytes        INTEGER NOT NULL,
		  tier_results_json  TEXT,
		  part_number        INTEGER,
		  compression_level  TEXT,
		  range_json         TEXT,
		  FOREIGN KEY (project_id, session_id)
		    REFERENCES sessions(project_id, session_id)
		);

		CREATE INDEX IF NOT EXISTS idx_compressions_session
		  ON compressions(project_id, session_id, seq);

		-- Storage-level backstop for the one-record-per-(part, level) invariant.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_compressions_part_level
		  ON compressions(project_id, session_id, part_number, compression_level)
		  WHERE part_number IS NOT NULL;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration to v1 failed: %w", err)
		}

		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// GetUserVersion reads the sqlite user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion writes the sqlite user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// verifyWALMode checks that the journal mode is WAL.
func verifyWALMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to read journal_mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL journal mode, got %q", mode)
	}
	return nil
}
