package ops

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/manifest"
	"github.com/hpungsan/condense/internal/version"
)

// ListInput contains parameters for the List operation. SessionID is
// optional: without it the project's sessions are listed, with it the
// session's versions.
type ListInput struct {
	ProjectID string
	SessionID string
}

// SessionItem summarizes one tracked session.
type SessionItem struct {
	SessionID    string `json:"session_id"`
	File         string `json:"file"`
	Versions     int    `json:"versions"`
	Parts        int    `json:"parts"`
	LastAccessed int64  `json:"last_accessed"`
}

// VersionItem summarizes one compression record.
type VersionItem struct {
	VersionID        string  `json:"version_id"`
	File             string  `json:"file"`
	PartNumber       *int    `json:"part_number,omitempty"`
	CompressionLevel string  `json:"compression_level,omitempty"`
	CreatedAt        int64   `json:"created_at"`
	InputMessages    int     `json:"input_messages"`
	OutputMessages   int     `json:"output_messages"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// PartGroup groups a session's versions by part number. Legacy records
// without a part number land in a group with Part == 0.
type PartGroup struct {
	Part     int           `json:"part"`
	Versions []VersionItem `json:"versions"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	ProjectID string        `json:"project_id"`
	Sessions  []SessionItem `json:"sessions,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Parts     []PartGroup   `json:"parts,omitempty"`

	// OrphanedArtifacts lists artifact files present on disk with no
	// matching manifest record. A crash between artifact write and manifest
	// append leaves these behind; they are reported, never deleted.
	OrphanedArtifacts []string `json:"orphaned_artifacts,omitempty"`
}

// List enumerates a project's sessions, or one session's versions grouped by
// part.
func List(ctx context.Context, env *Env, input ListInput) (*ListOutput, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, errors.NewInvalidRequest("project_id is required")
	}

	m, err := env.Store.Load(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	out := &ListOutput{ProjectID: input.ProjectID}

	if input.SessionID == "" {
		for _, sess := range m.Sessions {
			out.Sessions = append(out.Sessions, SessionItem{
				SessionID:    sess.SessionID,
				File:         sess.OriginalFile,
				Versions:     len(sess.Compressions),
				Parts:        sess.MaxPartNumber(),
				LastAccessed: sess.LastAccessed,
			})
		}
		sort.Slice(out.Sessions, func(i, j int) bool {
			return out.Sessions[i].SessionID < out.Sessions[j].SessionID
		})
		return out, nil
	}

	sess, ok := m.Sessions[input.SessionID]
	if !ok {
		return nil, errors.NewSessionNotFound(input.ProjectID, input.SessionID)
	}
	out.SessionID = input.SessionID

	groups := make(map[int][]VersionItem)
	for _, rec := range sess.Compressions {
		part := 0
		if rec.PartNumber != nil {
			part = *rec.PartNumber
		}
		groups[part] = append(groups[part], VersionItem{
			VersionID:        rec.VersionID,
			File:             rec.File,
			PartNumber:       rec.PartNumber,
			CompressionLevel: string(rec.CompressionLevel),
			CreatedAt:        rec.CreatedAt,
			InputMessages:    rec.InputMessages,
			OutputMessages:   rec.OutputMessages,
			CompressionRatio: rec.CompressionRatio,
		})
	}

	parts := make([]int, 0, len(groups))
	for part := range groups {
		parts = append(parts, part)
	}
	sort.Ints(parts)
	for _, part := range parts {
		out.Parts = append(out.Parts, PartGroup{Part: part, Versions: groups[part]})
	}

	out.OrphanedArtifacts = scanOrphans(env.VersionsDir(input.ProjectID, input.SessionID), sess)
	return out, nil
}

// scanOrphans reports version-shaped artifact files on disk that no manifest
// record claims. Unreadable directories and unrecognized filenames are
// skipped silently.
func scanOrphans(dir string, sess *manifest.Session) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	claimed := make(map[string]bool, len(sess.Compressions))
	for _, rec := range sess.Compressions {
		claimed[rec.File] = true
	}

	var orphans []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		base, ok := strings.CutSuffix(name, ".md")
		if !ok {
			base, ok = strings.CutSuffix(name, ".jsonl")
			if !ok {
				continue
			}
		}
		if claimed[base] || seen[base] {
			continue
		}
		if version.ParsePartVersionFilename(base) == nil && version.ParseLegacyFilename(base) == nil {
			continue
		}
		seen[base] = true
		orphans = append(orphans, base)
	}
	sort.Strings(orphans)
	return orphans
}
