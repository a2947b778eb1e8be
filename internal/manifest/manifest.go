// Package manifest defines the per-project catalog of sessions and their
// immutable compression records, plus the Store contract used to persist it.
package manifest

import (
	"context"

	"github.com/hpungsan/condense/internal/compact"
)

// MessageRange is a half-open index range [StartIndex, EndIndex) into a
// session's source log, with the timestamps of its bounding messages.
type MessageRange struct {
	StartIndex     int    `json:"start_index"`
	EndIndex       int    `json:"end_index"`
	StartTimestamp string `json:"start_timestamp,omitempty"`
	EndTimestamp   string `json:"end_timestamp,omitempty"`
	MessageCount   int    `json:"message_count"`
}

// FileSizes holds the byte sizes of a version's two artifact files.
type FileSizes struct {
	Markdown int64 `json:"markdown"`
	JSONL    int64 `json:"jsonl"`
}

// TierResult describes the outcome of one tier of a tiered compaction.
type TierResult struct {
	Name           string `json:"name"`
	InputMessages  int    `json:"input_messages"`
	OutputMessages int    `json:"output_messages"`
	InputTokens    int    `json:"input_tokens"`
	OutputTokens   int    `json:"output_tokens"`
}

// CompressionRecord is an immutable description of one completed compression.
// Records are appended, never mutated or deleted; new levels and parts add
// new records. For a given session at most one record may exist per
// (PartNumber, CompressionLevel) pair.
type CompressionRecord struct {
	// ID is the storage row id (ULID); VersionID is the user-facing identity.
	ID        string `json:"id"`
	VersionID string `json:"version_id"`

	// File is the extension-less base filename shared by the markdown and
	// JSONL artifacts.
	File      string `json:"file"`
	CreatedAt int64  `json:"created_at"`

	Settings compact.Settings `json:"settings"`

	InputTokens      int     `json:"input_tokens"`
	InputMessages    int     `json:"input_messages"`
	OutputTokens     int     `json:"output_tokens"`
	OutputMessages   int     `json:"output_messages"`
	CompressionRatio float64 `json:"compression_ratio"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`

	FileSizes   FileSizes    `json:"file_sizes"`
	TierResults []TierResult `json:"tier_results,omitempty"`

	// PartNumber is nil for legacy full-session records.
	PartNumber       *int          `json:"part_number,omitempty"`
	CompressionLevel compact.Level `json:"compression_level,omitempty"`

	// MessageRange is nil for legacy records that never captured one.
	MessageRange *MessageRange `json:"message_range,omitempty"`
}

// Session is one conversation log tracked by the catalog. Compressions is
// append-only and ordered by creation.
type Session struct {
	SessionID    string               `json:"session_id"`
	OriginalFile string               `json:"original_file"`
	Compressions []*CompressionRecord `json:"compressions"`
	LastAccessed int64                `json:"last_accessed"`
	CreatedAt    int64                `json:"created_at"`
}

// Manifest is the per-project catalog mapping session ids to sessions.
type Manifest struct {
	Sessions map[string]*Session `json:"sessions"`
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{Sessions: make(map[string]*Session)}
}

// MaxPartNumber returns the highest part number among the session's records,
// or 0 if no part-based record exists. Gaps from out-of-band record removal
// are not reconciled; numbering strictly increments from the maximum seen.
func (s *Session) MaxPartNumber() int {
	max := 0
	for _, rec := range s.Compressions {
		if rec.PartNumber != nil && *rec.PartNumber > max {
			max = *rec.PartNumber
		}
	}
	return max
}

// RecordsForPart returns the records sharing the given part number, one per
// compression level attempted, in append order.
func (s *Session) RecordsForPart(partNumber int) []*CompressionRecord {
	var recs []*CompressionRecord
	for _, rec := range s.Compressions {
		if rec.PartNumber != nil && *rec.PartNumber == partNumber {
			recs = append(recs, rec)
		}
	}
	return recs
}

// CompressedBoundary returns the index immediately following the last
// compressed message range, i.e. the start of the uncompressed delta.
func (s *Session) CompressedBoundary() int {
	boundary := 0
	for _, rec := range s.Compressions {
		if rec.MessageRange != nil && rec.MessageRange.EndIndex > boundary {
			boundary = rec.MessageRange.EndIndex
		}
	}
	return boundary
}

// Store is the manifest persistence contract. Save must persist the full
// session map atomically enough that appends serialized by the lock manager
// never interleave corruptly.
type Store interface {
	Load(ctx context.Context, projectID string) (*Manifest, error)
	Save(ctx context.Context, projectID string, m *Manifest) error
}
