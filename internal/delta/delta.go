// Package delta computes the unprocessed message range of a session from its
// compression history and the current source log.
package delta

import (
	"github.com/hpungsan/condense/internal/manifest"
	"github.com/hpungsan/condense/internal/transcript"
)

// Delta is a transient computation result, never persisted. Messages is the
// subsequence of the source log not yet covered by any compression record.
type Delta struct {
	HasDelta           bool
	Messages           []transcript.Message
	PreviousPartNumber int
	StartIndex         int
	EndIndex           int
	StartTimestamp     string
	EndTimestamp       string
}

// Detect computes the session's delta against the given log. The boundary is
// the index immediately following the last compressed message range; the
// previous part number is the highest among existing records (0 if none).
// Detection is idempotent: without an intervening compression, repeated calls
// return the same result.
func Detect(s *manifest.Session, log *transcript.Log) Delta {
	boundary := s.CompressedBoundary()
	if boundary > len(log.Messages) {
		// The source log shrank below the recorded boundary; nothing new.
		boundary = len(log.Messages)
	}

	d := Delta{
		PreviousPartNumber: s.MaxPartNumber(),
		StartIndex:         boundary,
		EndIndex:           len(log.Messages),
	}

	if boundary >= len(log.Messages) {
		d.EndIndex = boundary
		return d
	}

	d.HasDelta = true
	d.Messages = log.Messages[boundary:]
	d.StartTimestamp = d.Messages[0].Timestamp
	d.EndTimestamp = d.Messages[len(d.Messages)-1].Timestamp
	return d
}
