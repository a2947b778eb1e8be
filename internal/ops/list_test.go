package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/errors"
)

func TestList_Sessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, id := range []string{"sess-b", "sess-a"} {
		logPath := writeLog(t, 5)
		if _, err := Track(ctx, env, TrackInput{ProjectID: "proj", SessionID: id, File: logPath}); err != nil {
			t.Fatalf("Track(%s) failed: %v", id, err)
		}
	}

	out, err := List(ctx, env, ListInput{ProjectID: "proj"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Sessions) != 2 {
		t.Fatalf("Sessions = %d, want 2", len(out.Sessions))
	}
	if out.Sessions[0].SessionID != "sess-a" || out.Sessions[1].SessionID != "sess-b" {
		t.Errorf("sessions not sorted: %+v", out.Sessions)
	}
}

func TestList_VersionsGroupedByPart(t *testing.T) {
	env, logPath := trackAndCompress(t)
	ctx := context.Background()

	if _, err := RecompressPart(ctx, env, RecompressPartInput{
		ProjectID: "proj", SessionID: "sess", PartNumber: 1,
		Settings: aggressiveSettings(),
	}); err != nil {
		t.Fatalf("RecompressPart failed: %v", err)
	}
	appendLog(t, logPath, 5, 3)
	if _, err := CompressDelta(ctx, env, CompressDeltaInput{
		ProjectID: "proj", SessionID: "sess", Settings: compact.DefaultUniform(),
	}); err != nil {
		t.Fatalf("CompressDelta failed: %v", err)
	}

	out, err := List(ctx, env, ListInput{ProjectID: "proj", SessionID: "sess"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(out.Parts) != 2 {
		t.Fatalf("Parts = %d groups, want 2", len(out.Parts))
	}
	if out.Parts[0].Part != 1 || len(out.Parts[0].Versions) != 2 {
		t.Errorf("part 1 group = %+v", out.Parts[0])
	}
	if out.Parts[1].Part != 2 || len(out.Parts[1].Versions) != 1 {
		t.Errorf("part 2 group = %+v", out.Parts[1])
	}
	if len(out.OrphanedArtifacts) != 0 {
		t.Errorf("unexpected orphans: %v", out.OrphanedArtifacts)
	}
}

func TestList_ReportsOrphanedArtifacts(t *testing.T) {
	env, _ := trackAndCompress(t)
	ctx := context.Background()

	// Simulate a crash between artifact write and manifest append: a
	// version-shaped file on disk that no record claims.
	dir := env.VersionsDir("proj", "sess")
	orphan := filepath.Join(dir, "compressed_part7_v3.md")
	if err := os.WriteFile(orphan, []byte("# orphan\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// A random file must not be reported.
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := List(ctx, env, ListInput{ProjectID: "proj", SessionID: "sess"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.OrphanedArtifacts) != 1 || out.OrphanedArtifacts[0] != "compressed_part7_v3" {
		t.Errorf("OrphanedArtifacts = %v", out.OrphanedArtifacts)
	}
}

func TestList_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := List(context.Background(), env, ListInput{ProjectID: "proj", SessionID: "nope"})
	wantCode(t, err, errors.ErrSessionNotFound)
}

func TestShow(t *testing.T) {
	env, _ := trackAndCompress(t)
	ctx := context.Background()

	out, err := Show(ctx, env, ShowInput{ProjectID: "proj", SessionID: "sess", VersionID: "part1_v001"})
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if out.Format != FormatMarkdown {
		t.Errorf("Format = %q, want markdown default", out.Format)
	}
	if !strings.Contains(out.Content, "# Compressed conversation: sess") {
		t.Errorf("markdown content wrong: %q", out.Content)
	}
	if out.File == "" {
		t.Error("File not resolved from version id")
	}

	// Address by base filename instead.
	byFile, err := Show(ctx, env, ShowInput{ProjectID: "proj", SessionID: "sess", File: out.File})
	if err != nil {
		t.Fatalf("Show by file failed: %v", err)
	}
	if byFile.VersionID != "part1_v001" {
		t.Errorf("VersionID = %q, want resolved from filename", byFile.VersionID)
	}
}

func TestShow_Formats(t *testing.T) {
	env, _ := trackAndCompress(t)
	ctx := context.Background()

	jl, err := Show(ctx, env, ShowInput{
		ProjectID: "proj", SessionID: "sess", VersionID: "part1_v001", Format: FormatJSONL,
	})
	if err != nil {
		t.Fatalf("Show jsonl failed: %v", err)
	}
	if !strings.Contains(jl.Content, `"kind":"compression"`) {
		t.Errorf("jsonl content missing header: %q", jl.Content)
	}

	htm, err := Show(ctx, env, ShowInput{
		ProjectID: "proj", SessionID: "sess", VersionID: "part1_v001", Format: FormatHTML,
	})
	if err != nil {
		t.Fatalf("Show html failed: %v", err)
	}
	if !strings.Contains(htm.Content, "<h1") {
		t.Errorf("html content missing tags: %q", htm.Content)
	}

	_, err = Show(ctx, env, ShowInput{
		ProjectID: "proj", SessionID: "sess", VersionID: "part1_v001", Format: "pdf",
	})
	wantCode(t, err, errors.ErrInvalidRequest)
}

func TestShow_VersionNotFound(t *testing.T) {
	env, _ := trackAndCompress(t)

	_, err := Show(context.Background(), env, ShowInput{
		ProjectID: "proj", SessionID: "sess", VersionID: "part9_v001",
	})
	wantCode(t, err, errors.ErrVersionNotFound)
}
