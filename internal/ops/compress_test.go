package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/lock"
)

func TestTrack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 5)

	out, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if out.Messages != 5 {
		t.Errorf("Messages = %d, want 5 (bookkeeping line must not count)", out.Messages)
	}

	// Tracking the same session again conflicts.
	_, err = Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath})
	wantCode(t, err, errors.ErrSessionExists)
}

func TestTrack_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := Track(context.Background(), env, TrackInput{
		ProjectID: "proj", SessionID: "sess", File: "/no/such/file.jsonl",
	})
	wantCode(t, err, errors.ErrSessionFileNotFound)
}

func TestCompressDelta_FirstPart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 5)

	if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	rec, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	})
	if err != nil {
		t.Fatalf("CompressDelta failed: %v", err)
	}

	if rec.PartNumber == nil || *rec.PartNumber != 1 {
		t.Errorf("PartNumber = %v, want 1", rec.PartNumber)
	}
	if rec.VersionID != "part1_v001" {
		t.Errorf("VersionID = %q", rec.VersionID)
	}
	if rec.CompressionLevel != compact.LevelModerate {
		t.Errorf("CompressionLevel = %q", rec.CompressionLevel)
	}
	if rec.MessageRange == nil || rec.MessageRange.StartIndex != 0 || rec.MessageRange.EndIndex != 5 {
		t.Errorf("MessageRange = %+v, want [0, 5)", rec.MessageRange)
	}
	if rec.InputMessages != 5 {
		t.Errorf("InputMessages = %d, want 5", rec.InputMessages)
	}
	if rec.InputTokens <= 0 || rec.CompressionRatio <= 0 {
		t.Errorf("stats not populated: tokens=%d ratio=%v", rec.InputTokens, rec.CompressionRatio)
	}

	// Both artifacts must exist on disk.
	dir := env.VersionsDir("proj", "sess")
	for _, ext := range []string{".md", ".jsonl"} {
		path := filepath.Join(dir, rec.File+ext)
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("artifact %s missing: %v", ext, err)
		}
		if info.Size() == 0 {
			t.Errorf("artifact %s is empty", ext)
		}
	}
	if rec.FileSizes.Markdown == 0 || rec.FileSizes.JSONL == 0 {
		t.Errorf("FileSizes = %+v", rec.FileSizes)
	}

	// The record must have been persisted.
	status, err := Status(ctx, env, StatusInput{ProjectID: "proj", SessionID: "sess"})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Versions != 1 || status.HasDelta {
		t.Errorf("status after compression = %+v", status)
	}
}

func TestCompressDelta_NoDelta(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 5)

	if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if _, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	}); err != nil {
		t.Fatalf("CompressDelta failed: %v", err)
	}

	// The log has not grown, so there is nothing left to compress.
	_, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	})
	wantCode(t, err, errors.ErrNoDelta)
}

func TestCompressDelta_InsufficientMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 5)

	if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if _, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	}); err != nil {
		t.Fatalf("CompressDelta failed: %v", err)
	}

	// A single new message is a delta, but too small to compress.
	appendLog(t, logPath, 5, 1)
	_, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	})
	wantCode(t, err, errors.ErrInsufficientMessages)
}

func TestCompressDelta_SecondPart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 5)

	if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if _, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	}); err != nil {
		t.Fatalf("first CompressDelta failed: %v", err)
	}

	appendLog(t, logPath, 5, 3)

	rec, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	})
	if err != nil {
		t.Fatalf("second CompressDelta failed: %v", err)
	}
	if rec.PartNumber == nil || *rec.PartNumber != 2 {
		t.Errorf("PartNumber = %v, want 2", rec.PartNumber)
	}
	if rec.VersionID != "part2_v001" {
		t.Errorf("VersionID = %q", rec.VersionID)
	}
	if rec.MessageRange.StartIndex != 5 || rec.MessageRange.EndIndex != 8 {
		t.Errorf("MessageRange = %+v, want [5, 8)", rec.MessageRange)
	}
}

func TestCompressDelta_InvalidSettings(t *testing.T) {
	env := newTestEnv(t)

	_, err := CompressDelta(context.Background(), env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess",
		Settings: compact.Settings{Mode: "sideways"},
	})
	wantCode(t, err, errors.ErrInvalidSettings)
}

func TestCompressDelta_SessionNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := CompressDelta(context.Background(), env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "nope", Settings: compact.DefaultUniform(),
	})
	wantCode(t, err, errors.ErrSessionNotFound)
}

func TestCompressDelta_SourceFileDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 5)

	if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if err := os.Remove(logPath); err != nil {
		t.Fatal(err)
	}

	_, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	})
	wantCode(t, err, errors.ErrSessionFileNotFound)
}

func TestCompressDelta_LockConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 5)

	if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	lk, err := env.Locks.Acquire("proj", "sess", lock.OpCompression)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	_, err = CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	})
	wantCode(t, err, errors.ErrCompressionInProgress)

	// After release the operation goes through.
	lk.Release()
	if _, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	}); err != nil {
		t.Fatalf("CompressDelta after release failed: %v", err)
	}
}

func TestCompressDelta_Tiered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 12)

	if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	rec, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess",
		Settings: compact.Settings{
			Mode:   compact.ModeTiered,
			Tiered: &compact.TieredSettings{TierPreset: compact.PresetBalanced},
		},
	})
	if err != nil {
		t.Fatalf("CompressDelta failed: %v", err)
	}
	if len(rec.TierResults) != 3 {
		t.Errorf("TierResults = %d entries, want 3", len(rec.TierResults))
	}
	if rec.CompressionLevel != compact.LevelModerate {
		t.Errorf("CompressionLevel = %q, want moderate for the balanced preset", rec.CompressionLevel)
	}
}

func TestStatus_ReportsDelta(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logPath := writeLog(t, 5)

	if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: "sess", File: logPath}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	status, err := Status(ctx, env, StatusInput{ProjectID: "proj", SessionID: "sess"})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.HasDelta || status.DeltaMessages != 5 || status.NextPartNumber != 1 {
		t.Errorf("status = %+v", status)
	}

	// Status is a dry run: calling it must not consume the delta.
	again, err := Status(ctx, env, StatusInput{ProjectID: "proj", SessionID: "sess"})
	if err != nil {
		t.Fatalf("second Status failed: %v", err)
	}
	if !again.HasDelta || again.DeltaMessages != 5 {
		t.Errorf("second status = %+v", again)
	}
}

func TestCompressionRatio(t *testing.T) {
	cases := []struct {
		in, out int
		want    float64
	}{
		{1000, 300, 3.33},
		{1000, 1000, 1},
		{500, 1000, 0.5},
		{1000, 0, 1}, // empty output reports a neutral ratio
		{0, 0, 1},
	}
	for _, tc := range cases {
		if got := compressionRatio(tc.in, tc.out); got != tc.want {
			t.Errorf("compressionRatio(%d, %d) = %v, want %v", tc.in, tc.out, got, tc.want)
		}
	}
}
