package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/manifest"
)

// Store implements manifest.Store over the sqlite catalog. Records are
// append-only: Save inserts rows that do not yet exist and never mutates or
// deletes existing ones.
type Store struct {
	db *sql.DB
}

// NewStore creates a manifest store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load reads the full session map for a project. A project with no tracked
// sessions yields an empty manifest, not an error.
func (s *Store) Load(ctx context.Context, projectID string) (*manifest.Manifest, error) {
	m := manifest.New()

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, original_file, last_accessed, created_at
		FROM sessions
		WHERE project_id = ?
		ORDER BY created_at, session_id
	`, projectID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		sess := &manifest.Session{}
		if err := rows.Scan(&sess.SessionID, &sess.OriginalFile, &sess.LastAccessed, &sess.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		m.Sessions[sess.SessionID] = sess
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	recRows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, version_id, file, created_at, settings_json,
			input_tokens, input_messages, output_tokens, output_messages,
			compression_ratio, processing_time_ms, markdown_bytes, jsonl_bytes,
			tier_results_json, part_number, compression_level, range_json
		FROM compressions
		WHERE project_id = ?
		ORDER BY session_id, seq
	`, projectID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer recRows.Close()

	for recRows.Next() {
		var (
			rec         manifest.CompressionRecord
			sessionID   string
			settings    string
			tierResults sql.NullString
			partNumber  sql.NullInt64
			level       sql.NullString
			rangeJSON   sql.NullString
		)
		if err := recRows.Scan(&rec.ID, &sessionID, &rec.VersionID, &rec.File, &rec.CreatedAt,
			&settings, &rec.InputTokens, &rec.InputMessages, &rec.OutputTokens, &rec.OutputMessages,
			&rec.CompressionRatio, &rec.ProcessingTimeMs, &rec.FileSizes.Markdown, &rec.FileSizes.JSONL,
			&tierResults, &partNumber, &level, &rangeJSON); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(settings), &rec.Settings); err != nil {
			return nil, errors.NewInternal(err)
		}
		if tierResults.Valid {
			if err := json.Unmarshal([]byte(tierResults.String), &rec.TierResults); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		if partNumber.Valid {
			n := int(partNumber.Int64)
			rec.PartNumber = &n
		}
		if level.Valid {
			rec.CompressionLevel = compact.Level(level.String)
		}
		if rangeJSON.Valid {
			r := &manifest.MessageRange{}
			if err := json.Unmarshal([]byte(rangeJSON.String), r); err != nil {
				return nil, errors.NewInternal(err)
			}
			rec.MessageRange = r
		}

		sess, ok := m.Sessions[sessionID]
		if !ok {
			// Orphaned record row; tolerate rather than fail the load.
			continue
		}
		sess.Compressions = append(sess.Compressions, &rec)
	}
	if err := recRows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return m, nil
}

// Save persists the manifest in one transaction: sessions are upserted,
// compression records are inserted if their id is not yet present. A unique
// index violation on (part_number, compression_level) surfaces as
// VERSION_EXISTS; it is the last-line defense when a second process races the
// in-process lock manager.
func (s *Store) Save(ctx context.Context, projectID string, m *manifest.Manifest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for _, sess := range m.Sessions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (project_id, session_id, original_file, last_accessed, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (project_id, session_id) DO UPDATE SET
				original_file = excluded.original_file,
				last_accessed = excluded.last_accessed
		`, projectID, sess.SessionID, sess.OriginalFile, sess.LastAccessed, sess.CreatedAt)
		if err != nil {
			return errors.NewInternal(err)
		}

		for seq, rec := range sess.Compressions {
			exists, err := recordExists(ctx, tx, rec.ID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if err := insertRecord(ctx, tx, projectID, sess.SessionID, seq, rec); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func recordExists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM compressions WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, projectID, sessionID string, seq int, rec *manifest.CompressionRecord) error {
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return errors.NewInternal(err)
	}

	var tierResults sql.NullString
	if len(rec.TierResults) > 0 {
		data, err := json.Marshal(rec.TierResults)
		if err != nil {
			return errors.NewInternal(err)
		}
		tierResults = sql.NullString{String: string(data), Valid: true}
	}

	var partNumber sql.NullInt64
	if rec.PartNumber != nil {
		partNumber = sql.NullInt64{Int64: int64(*rec.PartNumber), Valid: true}
	}

	var level sql.NullString
	if rec.CompressionLevel != "" {
		level = sql.NullString{String: string(rec.CompressionLevel), Valid: true}
	}

	var rangeJSON sql.NullString
	if rec.MessageRange != nil {
		data, err := json.Marshal(rec.MessageRange)
		if err != nil {
			return errors.NewInternal(err)
		}
		rangeJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO compressions (
			id, project_id, session_id, seq, version_id, file, created_at,
			settings_json, input_tokens, input_messages, output_tokens, output_messages,
			compression_ratio, processing_time_ms, markdown_bytes, jsonl_bytes,
			tier_results_json, part_number, compression_level, range_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, projectID, sessionID, seq, rec.VersionID, rec.File, rec.CreatedAt,
		string(settings), rec.InputTokens, rec.InputMessages, rec.OutputTokens, rec.OutputMessages,
		rec.CompressionRatio, rec.ProcessingTimeMs, rec.FileSizes.Markdown, rec.FileSizes.JSONL,
		tierResults, partNumber, level, rangeJSON)
	if err != nil {
		if isUniqueConstraintError(err) {
			part := 0
			if rec.PartNumber != nil {
				part = *rec.PartNumber
			}
			return errors.NewVersionExists(sessionID, part, string(rec.CompressionLevel))
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
