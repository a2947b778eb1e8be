package ops

import (
	"context"
	"time"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/delta"
	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/lock"
	"github.com/hpungsan/condense/internal/manifest"
	"github.com/hpungsan/condense/internal/render"
	"github.com/hpungsan/condense/internal/transcript"
	"github.com/hpungsan/condense/internal/version"
)

// CompressDeltaInput contains parameters for the CompressDelta operation.
type CompressDeltaInput struct {
	ProjectID string
	SessionID string
	Settings  compact.Settings
}

// CompressDelta compresses the session's uncompressed delta as a new part and
// appends an immutable compression record to the manifest.
//
// Settings are validated before the lock is taken; the lock is released on
// every exit path; artifacts are durably written before the manifest append.
func CompressDelta(ctx context.Context, env *Env, input CompressDeltaInput) (*manifest.CompressionRecord, error) {
	if err := validateIDs(input.ProjectID, input.SessionID); err != nil {
		return nil, err
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

	log, err := parseSourceLog(sess)
	if err != nil {
		return nil, err
	}

	d := delta.Detect(sess, log)
	if !d.HasDelta {
		return nil, errors.NewNoDelta(input.SessionID)
	}
	if len(d.Messages) < 2 {
		return nil, errors.NewInsufficientMessages(len(d.Messages))
	}

	partNumber := d.PreviousPartNumber + 1
	versionID := version.PartVersionID(sess, partNumber)
	level := input.Settings.CompressionLevel()

	msgRange := manifest.MessageRange{
		StartIndex:     d.StartIndex,
		EndIndex:       d.EndIndex,
		StartTimestamp: d.StartTimestamp,
		EndTimestamp:   d.EndTimestamp,
		MessageCount:   len(d.Messages),
	}

	rec, err := runCompression(ctx, env, compressionJob{
		projectID:     input.ProjectID,
		session:       sess,
		settings:      input.Settings,
		partNumber:    partNumber,
		versionID:     versionID,
		level:         level,
		messages:      d.Messages,
		msgRange:      msgRange,
		inputTokens:   transcript.SumTokens(d.Messages),
		inputMessages: len(d.Messages),
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

// compressionJob carries the resolved inputs of one compression through the
// shared compaction/stats/persistence mechanics.
type compressionJob struct {
	projectID     string
	session       *manifest.Session
	settings      compact.Settings
	partNumber    int
	versionID     string
	level         compact.Level
	messages      []transcript.Message
	msgRange      manifest.MessageRange
	inputTokens   int
	inputMessages int
}

// runCompression invokes the compaction collaborator, computes statistics,
// and persists the output artifacts. The manifest append stays with the
// caller so that it is the last action on the success path.
func runCompression(ctx context.Context, env *Env, job compressionJob) (*manifest.CompressionRecord, error) {
	started := time.Now()

	cctx, cancel := compactionContext(ctx, env.Cfg)
	defer cancel()

	result, err := env.Compactor.Compact(cctx, job.messages, transcript.UUIDs(job.messages), job.settings)
	if err != nil {
		return nil, errors.NewCompressionFailed(err)
	}

	base := version.PartVersionFilename(job.partNumber, job.level)
	doc := &render.Document{
		ProjectID:        job.projectID,
		SessionID:        job.session.SessionID,
		VersionID:        job.versionID,
		PartNumber:       job.partNumber,
		CompressionLevel: job.level,
		Mode:             job.settings.Mode,
		CreatedAt:        started,
		MessageRange:     job.msgRange,
		Result:           result,
	}

	markdown := render.ToMarkdown(doc)
	jsonl, err := render.ToJSONL(doc)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	sizes, err := writeArtifacts(env.VersionsDir(job.projectID, job.session.SessionID), base, markdown, jsonl)
	if err != nil {
		return nil, err
	}

	id, err := newULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	rangeCopy := job.msgRange
	part := job.partNumber
	return &manifest.CompressionRecord{
		ID:               id,
		VersionID:        job.versionID,
		File:             base,
		CreatedAt:        started.Unix(),
		Settings:         job.settings,
		InputTokens:      job.inputTokens,
		InputMessages:    job.inputMessages,
		OutputTokens:     result.OutputTokens,
		OutputMessages:   len(result.Messages),
		CompressionRatio: compressionRatio(job.inputTokens, result.OutputTokens),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		FileSizes:        sizes,
		TierResults:      tierResults(result.TierResults),
		PartNumber:       &part,
		CompressionLevel: job.level,
		MessageRange:     &rangeCopy,
	}, nil
}
