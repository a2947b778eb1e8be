package ops

import (
	"context"
	"os"
	"time"

	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/manifest"
)

// TrackInput contains parameters for the Track operation.
type TrackInput struct {
	ProjectID string
	SessionID string

	// File is the path to the session's source log.
	File string
}

// TrackOutput contains the result of the Track operation.
type TrackOutput struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id"`
	File      string `json:"file"`
	Messages  int    `json:"messages"`
}

// Track registers a session's source log in the project manifest so it can be
// compressed. Tracking an already-tracked session fails with SESSION_EXISTS.
func Track(ctx context.Context, env *Env, input TrackInput) (*TrackOutput, error) {
	if err := validateIDs(input.ProjectID, input.SessionID); err != nil {
		return nil, err
	}
	if input.File == "" {
		return nil, errors.NewInvalidRequest("file is required")
	}
	if _, err := os.Stat(input.File); err != nil {
		return nil, errors.NewSessionFileNotFound(input.File)
	}

	m, err := env.Store.Load(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, ok := m.Sessions[input.SessionID]; ok {
		return nil, errors.NewSessionExists(input.SessionID)
	}

	sess := &manifest.Session{
		SessionID:    input.SessionID,
		OriginalFile: input.File,
		LastAccessed: time.Now().Unix(),
		CreatedAt:    time.Now().Unix(),
	}

	log, err := parseSourceLog(sess)
	if err != nil {
		return nil, err
	}

	m.Sessions[input.SessionID] = sess
	if err := env.Store.Save(ctx, input.ProjectID, m); err != nil {
		return nil, err
	}

	return &TrackOutput{
		ProjectID: input.ProjectID,
		SessionID: input.SessionID,
		File:      input.File,
		Messages:  log.TotalMessages,
	}, nil
}
