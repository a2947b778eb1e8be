// Package compact defines the compaction collaborator contract: reducing an
// ordered message set to a smaller, semantically equivalent set according to
// uniform or tiered settings.
package compact

import (
	"context"
	"fmt"

	"github.com/hpungsan/condense/internal/transcript"
)

// OutputMessage is one message of a compaction result.
type OutputMessage struct {
	Type      transcript.MessageType `json:"type"`
	Content   string                 `json:"content"`
	Timestamp string                 `json:"timestamp,omitempty"`

	// SourceUUIDs lists the input messages this output covers. A summary
	// message covers many; a passed-through message covers one.
	SourceUUIDs []string `json:"source_uuids,omitempty"`

	// Tier names the tier that produced this message in tiered mode.
	Tier string `json:"tier,omitempty"`
}

// TierStats describes the outcome of a single tier.
type TierStats struct {
	Name           string `json:"name"`
	InputMessages  int    `json:"input_messages"`
	OutputMessages int    `json:"output_messages"`
	InputTokens    int    `json:"input_tokens"`
	OutputTokens   int    `json:"output_tokens"`
}

// Result is the outcome of one compaction.
type Result struct {
	Messages []OutputMessage `json:"messages"`

	// Changes is a human-readable log of what the compaction did.
	Changes []string `json:"changes,omitempty"`

	// TierResults is present only for tiered mode.
	TierResults []TierStats `json:"tier_results,omitempty"`

	// OutputTokens is the estimated token count of Messages.
	OutputTokens int `json:"output_tokens"`
}

// Compactor reduces a message set. Implementations may take significant
// wall-clock time (remote summarization); callers bound the call with the
// context and must not hold any resource other than the session lock.
type Compactor interface {
	Compact(ctx context.Context, msgs []transcript.Message, uuids []string, settings Settings) (*Result, error)
}

// prepare applies the shared pre-compaction options: skipping leading
// messages and dropping non-conversation entries. The returned slice aliases
// the input.
func prepare(msgs []transcript.Message, settings Settings) ([]transcript.Message, []string) {
	var changes []string

	if n := settings.SkipFirstMessages; n > 0 {
		if n > len(msgs) {
			n = len(msgs)
		}
		msgs = msgs[n:]
		changes = append(changes, fmt.Sprintf("skipped first %d message(s)", n))
	}

	if settings.RemoveNonConversation {
		kept := make([]transcript.Message, 0, len(msgs))
		removed := 0
		for _, m := range msgs {
			if m.Type == transcript.TypeOther {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		if removed > 0 {
			changes = append(changes, fmt.Sprintf("removed %d non-conversation message(s)", removed))
		}
		msgs = kept
	}

	return msgs, changes
}
