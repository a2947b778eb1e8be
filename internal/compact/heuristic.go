package compact

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/condense/internal/transcript"
)

// Heuristic is a deterministic, offline compactor: it groups consecutive
// messages into digests and truncates content according to the requested
// aggressiveness. Used when no API key is configured, and in tests.
type Heuristic struct{}

// NewHeuristic creates a heuristic compactor.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// levelParams returns (group size, content truncation) for a level.
func levelParams(level Level) (int, int) {
	switch level {
	case LevelLight:
		return 2, 600
	case LevelAggressive:
		return 8, 120
	default:
		return 4, 300
	}
}

// Compact implements Compactor.
func (h *Heuristic) Compact(ctx context.Context, msgs []transcript.Message, uuids []string, settings Settings) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msgs, changes := prepare(msgs, settings)

	res := &Result{Changes: changes}

	switch settings.Mode {
	case ModeTiered:
		tiers := settings.Tiered.Tiers
		if len(tiers) == 0 {
			tiers = PresetTiers(settings.Tiered.TierPreset)
		}
		offset := 0
		for i, tier := range tiers {
			count := int(math.Round(tier.Portion * float64(len(msgs))))
			if i == len(tiers)-1 {
				count = len(msgs) - offset // last tier absorbs rounding drift
			}
			if offset+count > len(msgs) {
				count = len(msgs) - offset
			}
			slice := msgs[offset : offset+count]
			offset += count

			out := digest(slice, tier.Aggressiveness, 0)
			for j := range out {
				out[j].Tier = tier.Name
			}
			res.Messages = append(res.Messages, out...)
			res.TierResults = append(res.TierResults, TierStats{
				Name:           tier.Name,
				InputMessages:  len(slice),
				OutputMessages: len(out),
				InputTokens:    transcript.SumTokens(slice),
				OutputTokens:   sumOutputTokens(out),
			})
			res.Changes = append(res.Changes, fmt.Sprintf("tier %s: %d -> %d message(s)", tier.Name, len(slice), len(out)))
		}
	default:
		out := digest(msgs, settings.Uniform.Aggressiveness, settings.Uniform.CompactionRatio)
		res.Messages = out
		res.Changes = append(res.Changes, fmt.Sprintf("uniform: %d -> %d message(s)", len(msgs), len(out)))
	}

	res.OutputTokens = sumOutputTokens(res.Messages)
	return res, nil
}

// digest groups consecutive messages and truncates their content. When ratio
// is non-zero it overrides the level's default group size.
func digest(msgs []transcript.Message, level Level, ratio float64) []OutputMessage {
	if len(msgs) == 0 {
		return nil
	}

	groupSize, truncAt := levelParams(level)
	if ratio > 0 {
		groupSize = int(math.Round(1 / ratio))
		if groupSize < 1 {
			groupSize = 1
		}
	}

	var out []OutputMessage
	for start := 0; start < len(msgs); start += groupSize {
		end := start + groupSize
		if end > len(msgs) {
			end = len(msgs)
		}
		group := msgs[start:end]

		var parts []string
		srcUUIDs := make([]string, 0, len(group))
		for _, m := range group {
			srcUUIDs = append(srcUUIDs, m.UUID)
			text := truncate(m.Content, truncAt)
			if text == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("[%s] %s", m.Type, text))
		}

		out = append(out, OutputMessage{
			Type:        groupType(group),
			Content:     strings.Join(parts, "\n"),
			Timestamp:   group[0].Timestamp,
			SourceUUIDs: srcUUIDs,
		})
	}
	return out
}

func groupType(group []transcript.Message) transcript.MessageType {
	t := group[0].Type
	for _, m := range group[1:] {
		if m.Type != t {
			return transcript.TypeOther
		}
	}
	return t
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	// keep the cut on a rune boundary
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}

func sumOutputTokens(msgs []OutputMessage) int {
	total := 0
	for _, m := range msgs {
		total += transcript.EstimateTokens(m.Content)
	}
	return total
}
