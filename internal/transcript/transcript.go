// Package transcript reads append-only conversation logs in the Claude Code
// JSONL format: one JSON record per line, heterogeneous record shapes, with
// conversation entries carrying uuid, type, timestamp, and message content.
package transcript

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// MessageType classifies a log entry.
type MessageType string

const (
	TypeUser      MessageType = "user"
	TypeAssistant MessageType = "assistant"
	TypeOther     MessageType = "other"
)

// Message is one conversation entry from a source log.
type Message struct {
	UUID      string      `json:"uuid"`
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	Content   string      `json:"content"`
}

// Log is a fully parsed source log.
type Log struct {
	Path          string
	Messages      []Message
	TotalMessages int
}

// maxLineSize bounds a single log line; assistant turns with embedded tool
// output can run long.
const maxLineSize = 4 * 1024 * 1024

// ParseFile reads and parses a session log. Lines that are not conversation
// entries (file snapshots, summaries) are kept as type "other" when they carry
// a uuid and skipped otherwise. A non-JSON line fails the whole parse.
func ParseFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	log := &Log{Path: path}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, fmt.Errorf("line %d: invalid JSON", lineNo)
		}

		uuid := gjson.Get(line, "uuid").String()
		if uuid == "" {
			// file-history-snapshot, summary lines, and similar bookkeeping
			continue
		}

		msg := Message{
			UUID:      uuid,
			Type:      classify(gjson.Get(line, "type").String()),
			Timestamp: gjson.Get(line, "timestamp").String(),
			Content:   extractContent(line),
		}
		log.Messages = append(log.Messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo, err)
	}

	log.TotalMessages = len(log.Messages)
	return log, nil
}

func classify(t string) MessageType {
	switch t {
	case "user":
		return TypeUser
	case "assistant":
		return TypeAssistant
	default:
		return TypeOther
	}
}

// extractContent pulls the human-readable text out of a log line. The
// message.content field is either a plain string or an array of content
// blocks; only text blocks contribute.
func extractContent(line string) string {
	content := gjson.Get(line, "message.content")
	switch {
	case content.Type == gjson.String:
		return content.String()
	case content.IsArray():
		var parts []string
		content.ForEach(func(_, block gjson.Result) bool {
			if block.Get("type").String() == "text" {
				if text := block.Get("text").String(); text != "" {
					parts = append(parts, text)
				}
			}
			return true
		})
		return strings.Join(parts, "\n")
	}
	// Some entries put text at the top level (e.g. summary records)
	return gjson.Get(line, "content").String()
}

// UUIDs returns the uuid of every message in order.
func UUIDs(msgs []Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.UUID
	}
	return ids
}
