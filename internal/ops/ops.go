// Package ops implements the compression operations: tracking sessions,
// detecting deltas, creating delta compressions, re-compressing parts, and
// listing or reading back versions.
package ops

import (
	"context"
	"crypto/rand"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/config"
	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/lock"
	"github.com/hpungsan/condense/internal/manifest"
	"github.com/hpungsan/condense/internal/transcript"
)

// Env bundles the collaborators every operation needs. One Env is shared by
// all concurrent operations; per-session exclusion comes from Locks.
type Env struct {
	Store     manifest.Store
	Locks     *lock.Manager
	Compactor compact.Compactor
	Cfg       *config.Config

	// BaseDir is the root under which version artifacts live
	// (BaseDir/projects/<project>/<session>/versions).
	BaseDir string
}

// VersionsDir returns the artifact directory for a session.
func (e *Env) VersionsDir(projectID, sessionID string) string {
	return filepath.Join(e.BaseDir, "projects", projectID, sessionID, "versions")
}

// validateIDs checks the addressing fields shared by all operations.
func validateIDs(projectID, sessionID string) error {
	if strings.TrimSpace(projectID) == "" {
		return errors.NewInvalidRequest("project_id is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return errors.NewInvalidRequest("session_id is required")
	}
	return nil
}

// loadSession loads the project manifest and resolves one session.
func loadSession(ctx context.Context, env *Env, projectID, sessionID string) (*manifest.Manifest, *manifest.Session, error) {
	m, err := env.Store.Load(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	sess, ok := m.Sessions[sessionID]
	if !ok {
		return nil, nil, errors.NewSessionNotFound(projectID, sessionID)
	}
	return m, sess, nil
}

// parseSourceLog verifies the source log exists and parses it.
func parseSourceLog(sess *manifest.Session) (*transcript.Log, error) {
	if _, err := os.Stat(sess.OriginalFile); err != nil {
		return nil, errors.NewSessionFileNotFound(sess.OriginalFile)
	}
	log, err := transcript.ParseFile(sess.OriginalFile)
	if err != nil {
		return nil, errors.NewSessionParseError(sess.OriginalFile, err)
	}
	return log, nil
}

// compactionContext bounds the compaction collaborator call with the
// configured timeout. The collaborator may invoke a remote summarization
// service; nothing but the session lock is held across it.
func compactionContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg != nil && cfg.CompactionTimeoutSeconds > 0 {
		return context.WithTimeout(ctx, time.Duration(cfg.CompactionTimeoutSeconds)*time.Second)
	}
	return context.WithCancel(ctx)
}

// compressionRatio computes inputTokens/outputTokens rounded to 2 decimals,
// and exactly 1 when outputTokens is 0.
func compressionRatio(inputTokens, outputTokens int) float64 {
	if outputTokens == 0 {
		return 1
	}
	return math.Round(float64(inputTokens)/float64(outputTokens)*100) / 100
}

// writeArtifacts persists the markdown and JSONL artifacts under the
// session's versions directory and returns their byte sizes. Artifacts are
// written before the manifest append; a crash in between leaves an orphaned
// file, never an orphaned record.
func writeArtifacts(dir, base, markdown, jsonl string) (manifest.FileSizes, error) {
	var sizes manifest.FileSizes

	if err := os.MkdirAll(dir, 0700); err != nil {
		return sizes, errors.NewInternal(err)
	}

	mdPath := filepath.Join(dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0600); err != nil {
		return sizes, errors.NewInternal(err)
	}

	jlPath := filepath.Join(dir, base+".jsonl")
	if err := os.WriteFile(jlPath, []byte(jsonl), 0600); err != nil {
		return sizes, errors.NewInternal(err)
	}

	sizes.Markdown = int64(len(markdown))
	sizes.JSONL = int64(len(jsonl))
	return sizes, nil
}

// newULID generates a new ULID for a record row id.
func newULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// tierResults converts compactor tier stats into manifest records.
func tierResults(stats []compact.TierStats) []manifest.TierResult {
	if len(stats) == 0 {
		return nil
	}
	out := make([]manifest.TierResult, len(stats))
	for i, s := range stats {
		out[i] = manifest.TierResult{
			Name:           s.Name,
			InputMessages:  s.InputMessages,
			OutputMessages: s.OutputMessages,
			InputTokens:    s.InputTokens,
			OutputTokens:   s.OutputTokens,
		}
	}
	return out
}
