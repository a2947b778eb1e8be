package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/render"
)

// ShowFormat selects the artifact representation to return.
type ShowFormat string

const (
	FormatMarkdown ShowFormat = "markdown"
	FormatJSONL    ShowFormat = "jsonl"
	FormatHTML     ShowFormat = "html"
)

// ShowInput contains parameters for the Show operation. The version may be
// addressed by VersionID or by base filename.
type ShowInput struct {
	ProjectID string
	SessionID string
	VersionID string
	File      string
	Format    ShowFormat // default: markdown
}

// ShowOutput contains the result of the Show operation.
type ShowOutput struct {
	ProjectID string     `json:"project_id"`
	SessionID string     `json:"session_id"`
	VersionID string     `json:"version_id"`
	File      string     `json:"file"`
	Format    ShowFormat `json:"format"`
	Content   string     `json:"content"`
}

// Show reads back one version's artifact, optionally rendered to HTML.
func Show(ctx context.Context, env *Env, input ShowInput) (*ShowOutput, error) {
	if err := validateIDs(input.ProjectID, input.SessionID); err != nil {
		return nil, err
	}
	if input.VersionID == "" && input.File == "" {
		return nil, errors.NewInvalidRequest("must specify either version_id or file")
	}

	format := input.Format
	if format == "" {
		format = FormatMarkdown
	}
	switch format {
	case FormatMarkdown, FormatJSONL, FormatHTML:
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("format must be one of: markdown, jsonl, html; got %q", format))
	}

	_, sess, err := loadSession(ctx, env, input.ProjectID, input.SessionID)
	if err != nil {
		return nil, err
	}

	base := input.File
	versionID := input.VersionID
	if base == "" {
		for _, rec := range sess.Compressions {
			if rec.VersionID == input.VersionID {
				base = rec.File
				break
			}
		}
		if base == "" {
			return nil, errors.NewVersionNotFound(input.SessionID, input.VersionID)
		}
	} else if versionID == "" {
		for _, rec := range sess.Compressions {
			if rec.File == base {
				versionID = rec.VersionID
				break
			}
		}
	}

	ext := ".md"
	if format == FormatJSONL {
		ext = ".jsonl"
	}
	path := filepath.Join(env.VersionsDir(input.ProjectID, input.SessionID), base+ext)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewVersionNotFound(input.SessionID, base)
		}
		return nil, errors.NewInternal(err)
	}

	content := string(data)
	if format == FormatHTML {
		content = render.ToHTML(content)
	}

	return &ShowOutput{
		ProjectID: input.ProjectID,
		SessionID: input.SessionID,
		VersionID: versionID,
		File:      base,
		Format:    format,
		Content:   content,
	}, nil
}
