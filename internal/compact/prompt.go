package compact

import (
	"fmt"
	"strings"

	"github.com/hpungsan/condense/internal/transcript"
)

// summarizationSystemPrompt instructs the model to produce a faithful,
// compact summary of a conversation segment.
const summarizationSystemPrompt = `You summarize segments of a developer conversation log.
Preserve: stated goals, decisions and their reasons, file paths, error messages,
commands run, and unresolved questions. Do not invent content. Output plain
markdown prose without preamble.`

// levelInstructions maps each compression level to its summarization intent.
var levelInstructions = map[Level]string{
	LevelLight:      "Condense lightly: keep the conversational flow and most detail; aim for roughly half the original length.",
	LevelModerate:   "Condense moderately: keep all decisions and technical specifics, drop pleasantries and repetition; aim for roughly a quarter of the original length.",
	LevelAggressive: "Condense aggressively: a terse factual digest of goals, decisions, and outcomes only; aim for a tenth of the original length.",
}

// buildUserPrompt assembles the summarization prompt for one message slice.
func buildUserPrompt(msgs []transcript.Message, level Level) string {
	instruction, ok := levelInstructions[level]
	if !ok {
		instruction = levelInstructions[LevelModerate]
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n<conversation>\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s\n", m.Type, m.Content)
	}
	b.WriteString("</conversation>")
	return b.String()
}
