package compact

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hpungsan/condense/internal/transcript"
)

// Summarizer is the API-backed compactor: each slice of input is reduced to a
// single summary message via Claude's streaming API.
type Summarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewSummarizer creates an API-backed compactor. defaultModel is used when
// the settings do not name a model.
func NewSummarizer(apiKey, defaultModel string) *Summarizer {
	return &Summarizer{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     defaultModel,
		maxTokens: 8192,
	}
}

// Compact implements Compactor.
func (s *Summarizer) Compact(ctx context.Context, msgs []transcript.Message, uuids []string, settings Settings) (*Result, error) {
	msgs, changes := prepare(msgs, settings)

	model := settings.Model
	if model == "" {
		model = s.model
	}

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
				count = len(msgs) - offset
			}
			if offset+count > len(msgs) {
				count = len(msgs) - offset
			}
			slice := msgs[offset : offset+count]
			offset += count
			if len(slice) == 0 {
				continue
			}

			out, err := s.summarize(ctx, model, slice, tier.Aggressiveness)
			if err != nil {
				return nil, err
			}
			out.Tier = tier.Name
			res.Messages = append(res.Messages, *out)
			res.TierResults = append(res.TierResults, TierStats{
				Name:           tier.Name,
				InputMessages:  len(slice),
				OutputMessages: 1,
				InputTokens:    transcript.SumTokens(slice),
				OutputTokens:   transcript.EstimateTokens(out.Content),
			})
			res.Changes = append(res.Changes, fmt.Sprintf("tier %s: summarized %d message(s)", tier.Name, len(slice)))
		}
	default:
		out, err := s.summarize(ctx, model, msgs, settings.Uniform.Aggressiveness)
		if err != nil {
			return nil, err
		}
		res.Messages = []OutputMessage{*out}
		res.Changes = append(res.Changes, fmt.Sprintf("uniform: summarized %d message(s)", len(msgs)))
	}

	res.OutputTokens = sumOutputTokens(res.Messages)
	return res, nil
}

// summarize reduces one message slice to a single summary message.
func (s *Summarizer) summarize(ctx context.Context, model string, msgs []transcript.Message, level Level) (*OutputMessage, error) {
	stream := s.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(s.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: summarizationSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(msgs, level))),
		},
	})

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("failed to accumulate stream: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}

	var summary strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			summary.WriteString(text.Text)
		}
	}
	if summary.Len() == 0 {
		return nil, fmt.Errorf("summarization returned no text")
	}

	return &OutputMessage{
		Type:        transcript.TypeOther,
		Content:     summary.String(),
		Timestamp:   msgs[0].Timestamp,
		SourceUUIDs: transcript.UUIDs(msgs),
	}, nil
}
