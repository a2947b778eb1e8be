package ops

import (
	"context"
	"time"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/lock"
	"github.com/hpungsan/condense/internal/manifest"
	"github.com/hpungsan/condense/internal/version"
)

// RecompressPartInput contains parameters for the RecompressPart operation.
type RecompressPartInput struct {
	ProjectID  string
	SessionID  string
	PartNumber int
	Settings   compact.Settings
}

// RecompressPart re-compresses an existing part at a different compression
// level. The input message set is unchanged, only the compaction strategy
// differs, so input token and message counts are copied from the part's
// original record and its message range is reused unmodified.
//
// The duplicate-level check runs before the source log is re-read or any
// compaction work begins; a duplicate fails with VERSION_EXISTS.
func RecompressPart(ctx context.Context, env *Env, input RecompressPartInput) (*manifest.CompressionRecord, error) {
	if err := validateIDs(input.ProjectID, input.SessionID); err != nil {
		return nil, err
	}
	if input.PartNumber < 1 {
		return nil, errors.NewInvalidRequest("part_number must be >= 1")
	}
	if err := input.Settings.Validate(); err != nil {
		return nil, err
	}

	lk, err := env.Locks.Acquire(input.ProjectID, input.SessionID, lock.OpCompression)
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	m, sess, err := loadSession(ctx, env, input.ProjectID, input.SessionID)
	if err != nil {
		return nil, err
	}

	existing := sess.RecordsForPart(input.PartNumber)
	if len(existing) == 0 {
		return nil, errors.NewPartNotFound(input.SessionID, input.PartNumber)
	}
	source := existing[0]
	if source.MessageRange == nil {
		return nil, errors.NewInvalidPart(input.SessionID, input.PartNumber)
	}

	level := input.Settings.CompressionLevel()
	if !version.CanRecompressPart(sess, input.PartNumber, level) {
		return nil, errors.NewVersionExists(input.SessionID, input.PartNumber, string(level))
	}

	log, err := parseSourceLog(sess)
	if err != nil {
		return nil, err
	}

	// Slice exactly the original range. The range was valid when recorded,
	// but the log is re-read here and must be re-checked.
	start, end := source.MessageRange.StartIndex, source.MessageRange.EndIndex
	if start < 0 || end > len(log.Messages) || start > end {
		return nil, errors.NewInvalidPart(input.SessionID, input.PartNumber)
	}
	slice := log.Messages[start:end]
	if len(slice) < 2 {
		return nil, errors.NewInsufficientMessages(len(slice))
	}

	versionID := version.PartVersionID(sess, input.PartNumber)

	rec, err := runCompression(ctx, env, compressionJob{
		projectID:     input.ProjectID,
		session:       sess,
		settings:      input.Settings,
		partNumber:    input.PartNumber,
		versionID:     versionID,
		level:         level,
		messages:      slice,
		msgRange:      *source.MessageRange,
		inputTokens:   source.InputTokens,
		inputMessages: source.InputMessages,
	})
	if err != nil {
		return nil, err
	}

	sess.Compressions = append(sess.Compressions, rec)
	sess.LastAccessed = time.Now().Unix()
	if err := env.Store.Save(ctx, input.ProjectID, m); err != nil {
		return nil, err
	}

	return rec, nil
}
