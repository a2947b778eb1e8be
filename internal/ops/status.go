package ops

import (
	"context"

	"github.com/hpungsan/condense/internal/delta"
)

// StatusInput contains parameters for the Status operation.
type StatusInput struct {
	ProjectID string
	SessionID string
}

// StatusOutput reports a session's delta state without compressing anything.
type StatusOutput struct {
	ProjectID          string `json:"project_id"`
	SessionID          string `json:"session_id"`
	TotalMessages      int    `json:"total_messages"`
	CompressedMessages int    `json:"compressed_messages"`
	HasDelta           bool   `json:"has_delta"`
	DeltaMessages      int    `json:"delta_messages"`
	PreviousPartNumber int    `json:"previous_part_number"`
	NextPartNumber     int    `json:"next_part_number"`
	StartIndex         int    `json:"start_index"`
	EndIndex           int    `json:"end_index"`
	Versions           int    `json:"versions"`
}

// Status runs delta detection for a session as a dry run. It takes no lock:
// detection is read-only and idempotent.
func Status(ctx context.Context, env *Env, input StatusInput) (*StatusOutput, error) {
	if err := validateIDs(input.ProjectID, input.SessionID); err != nil {
		return nil, err
	}

	_, sess, err := loadSession(ctx, env, input.ProjectID, input.SessionID)
	if err != nil {
		return nil, err
	}

	log, err := parseSourceLog(sess)
	if err != nil {
		return nil, err
	}

	d := delta.Detect(sess, log)

	return &StatusOutput{
		ProjectID:          input.ProjectID,
		SessionID:          input.SessionID,
		TotalMessages:      log.TotalMessages,
		CompressedMessages: d.StartIndex,
		HasDelta:           d.HasDelta,
		DeltaMessages:      len(d.Messages),
		PreviousPartNumber: d.PreviousPartNumber,
		NextPartNumber:     d.PreviousPartNumber + 1,
		StartIndex:         d.StartIndex,
		EndIndex:           d.EndIndex,
		Versions:           len(sess.Compressions),
	}, nil
}
