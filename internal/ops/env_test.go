package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/config"
	"github.com/hpungsan/condense/internal/db"
	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/lock"
)

// newTestEnv builds an Env over a throwaway base dir with the sqlite store and
// the deterministic heuristic compactor.
func newTestEnv(t *testing.T) *Env {
	t.Helper()

	base := t.TempDir()
	database, err := db.Init(base)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return &Env{
		Store:     db.NewStore(database),
		Locks:     lock.NewManager(),
		Compactor: compact.NewHeuristic(),
		Cfg:       config.DefaultConfig(),
		BaseDir:   base,
	}
}

// logLine renders one conversation entry in the source log format.
func logLine(i int) string {
	typ := "user"
	if i%2 == 1 {
		typ = "assistant"
	}
	return fmt.Sprintf(
		`{"uuid":"m%d","type":%q,"timestamp":"2024-01-01T00:00:%02dZ","message":{"content":"message %d with enough words to summarize"}}`,
		i, typ, i, i)
}

// writeLog writes a session log with messages [0, n) plus one bookkeeping line
// that the parser must skip, and returns its path.
func writeLog(t *testing.T, n int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(`{"type":"file-history-snapshot","snapshot":{}}` + "\n")
	for i := 0; i < n; i++ {
		b.WriteString(logLine(i) + "\n")
	}

	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		t.Fatalf("writing log fixture: %v", err)
	}
	return path
}

// appendLog appends messages [from, from+n) to an existing log.
func appendLog(t *testing.T, path string, from, n int) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("opening log fixture: %v", err)
	}
	defer f.Close()
	for i := from; i < from+n; i++ {
		if _, err := f.WriteString(logLine(i) + "\n"); err != nil {
			t.Fatalf("appending to log fixture: %v", err)
		}
	}
}

// wantCode fails the test unless err carries the given code.
func wantCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !errors.Is(err, code) {
		t.Fatalf("expected %s, got: %v", code, err)
	}
}
