package mcp

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/config"
	"github.com/hpungsan/condense/internal/db"
	"github.com/hpungsan/condense/internal/lock"
	"github.com/hpungsan/condense/internal/ops"
)

func newTestEnv(t *testing.T) *ops.Env {
	t.Helper()

	base := t.TempDir()
	database, err := db.Init(base)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return &ops.Env{
		Store:     db.NewStore(database),
		Locks:     lock.NewManager(),
		Compactor: compact.NewHeuristic(),
		Cfg:       config.DefaultConfig(),
		BaseDir:   base,
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestToolRegistry(t *testing.T) {
	names := AllToolNames()
	sort.Strings(names)

	want := []string{
		"compress_delta", "recompress_part",
		"session_status", "session_track",
		"version_list", "version_show",
	}
	if len(names) != len(want) {
		t.Fatalf("AllToolNames = %v", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("tool %d = %q, want %q", i, names[i], name)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	if unknown := ValidateDisabledTools([]string{"session_track", "version_show"}); len(unknown) != 0 {
		t.Errorf("known tools reported unknown: %v", unknown)
	}
	unknown := ValidateDisabledTools([]string{"session_track", "bogus_tool"})
	if len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("unknown = %v", unknown)
	}
}

func TestNewServer(t *testing.T) {
	env := newTestEnv(t)
	if s := NewServer(env, "test"); s == nil {
		t.Fatal("NewServer returned nil")
	}

	env.Cfg.DisabledTools = []string{"version_show"}
	if s := NewServer(env, "test"); s == nil {
		t.Fatal("NewServer with disabled tools returned nil")
	}
}

func TestHandleStatus_UnknownSession(t *testing.T) {
	h := NewHandlers(newTestEnv(t))

	res, err := h.HandleStatus(context.Background(), callRequest(map[string]any{
		"project_id": "proj",
		"session_id": "nope",
	}))
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	text := resultText(t, res)
	if !strings.Contains(text, "SESSION_NOT_FOUND") {
		t.Errorf("result = %q", text)
	}
}

func TestHandleTrackAndCompress(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandlers(env)
	ctx := context.Background()

	logPath := writeTestLog(t)

	res, err := h.HandleTrack(ctx, callRequest(map[string]any{
		"project_id": "proj",
		"session_id": "sess",
		"file":       logPath,
	}))
	if err != nil {
		t.Fatalf("HandleTrack failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleTrack error result: %s", resultText(t, res))
	}

	// Settings omitted: the handler falls back to the default uniform settings.
	res, err = h.HandleCompressDelta(ctx, callRequest(map[string]any{
		"project_id": "proj",
		"session_id": "sess",
	}))
	if err != nil {
		t.Fatalf("HandleCompressDelta failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleCompressDelta error result: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, "part1_v001") {
		t.Errorf("result = %q", text)
	}
}

func TestHandleCompressDelta_InvalidSettingsType(t *testing.T) {
	h := NewHandlers(newTestEnv(t))

	res, err := h.HandleCompressDelta(context.Background(), callRequest(map[string]any{
		"project_id": "proj",
		"session_id": "sess",
		"settings":   "not-an-object",
	}))
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(t, res), "INVALID_REQUEST") {
		t.Errorf("result = %q", resultText(t, res))
	}
}

func writeTestLog(t *testing.T) string {
	t.Helper()
	lines := []string{
		`{"uuid":"a1","type":"user","timestamp":"2024-01-01T00:00:00Z","message":{"content":"how do I start"}}`,
		`{"uuid":"a2","type":"assistant","timestamp":"2024-01-01T00:00:01Z","message":{"content":"run the setup script first"}}`,
		`{"uuid":"a3","type":"user","timestamp":"2024-01-01T00:00:02Z","message":{"content":"it failed with a permission error"}}`,
		`{"uuid":"a4","type":"assistant","timestamp":"2024-01-01T00:00:03Z","message":{"content":"check the directory ownership"}}`,
	}
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
