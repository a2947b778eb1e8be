// Package render serializes compaction results into the two artifact
// formats: human-readable markdown and machine-readable JSONL. Serialization
// is deterministic and carries no versioning logic.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/manifest"
)

// Document bundles one version's metadata with its compaction result for
// serialization.
type Document struct {
	ProjectID        string
	SessionID        string
	VersionID        string
	PartNumber       int
	CompressionLevel compact.Level
	Mode             compact.Mode
	CreatedAt        time.Time
	MessageRange     manifest.MessageRange
	Result           *compact.Result
}

// ToMarkdown renders the human-readable artifact.
func ToMarkdown(doc *Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Compressed conversation: %s\n\n", doc.SessionID)
	fmt.Fprintf(&b, "- Version: %s\n", doc.VersionID)
	fmt.Fprintf(&b, "- Part: %d\n", doc.PartNumber)
	fmt.Fprintf(&b, "- Level: %s (%s mode)\n", doc.CompressionLevel, doc.Mode)
	fmt.Fprintf(&b, "- Created: %s\n", doc.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Messages: %d (indices %d-%d)\n\n",
		doc.MessageRange.MessageCount, doc.MessageRange.StartIndex, doc.MessageRange.EndIndex)

	if len(doc.Result.Changes) > 0 {
		b.WriteString("## Changes\n\n")
		for _, c := range doc.Result.Changes {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Conversation\n\n")
	for _, m := range doc.Result.Messages {
		header := string(m.Type)
		if m.Tier != "" {
			header = fmt.Sprintf("%s · tier %s", m.Type, m.Tier)
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", header, m.Content)
	}

	return b.String()
}

// jsonlHeader is the metadata record on the first line of a JSONL artifact.
type jsonlHeader struct {
	Kind             string                `json:"kind"`
	ProjectID        string                `json:"project_id"`
	SessionID        string                `json:"session_id"`
	VersionID        string                `json:"version_id"`
	PartNumber       int                   `json:"part_number"`
	CompressionLevel compact.Level         `json:"compression_level"`
	Mode             compact.Mode          `json:"mode"`
	CreatedAt        string                `json:"created_at"`
	MessageRange     manifest.MessageRange `json:"message_range"`
	MessageCount     int                   `json:"message_count"`
}

// ToJSONL renders the machine-readable artifact: a metadata header record
// followed by one JSON record per output message.
func ToJSONL(doc *Document) (string, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)

	header := jsonlHeader{
		Kind:             "compression",
		ProjectID:        doc.ProjectID,
		SessionID:        doc.SessionID,
		VersionID:        doc.VersionID,
		PartNumber:       doc.PartNumber,
		CompressionLevel: doc.CompressionLevel,
		Mode:             doc.Mode,
		CreatedAt:        doc.CreatedAt.UTC().Format(time.RFC3339),
		MessageRange:     doc.MessageRange,
		MessageCount:     len(doc.Result.Messages),
	}
	if err := enc.Encode(header); err != nil {
		return "", err
	}

	for _, m := range doc.Result.Messages {
		if err := enc.Encode(m); err != nil {
			return "", err
		}
	}

	return b.String(), nil
}

// ToHTML converts a markdown artifact to HTML for preview. On conversion
// failure the markdown is returned escaped rather than erroring.
func ToHTML(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return html.EscapeString(md)
	}
	return buf.String()
}
