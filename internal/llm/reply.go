package llm

import "strings"

// Markers the model is instructed to emit when reasoning is requested.
const (
	reasoningMarker = "**Reasoning:**"
	answerMarker    = "**Answer:**"
)

// reasoningInstruction is appended to the system prompt when the caller
// asks for a visible reasoning section.
const reasoningInstruction = "\n\n## Response format\n" +
	"Before answering, show your reasoning: the key points of the question, " +
	"how you approach it, and how you organize the answer.\n\n" +
	"Use exactly this structure:\n\n" +
	reasoningMarker + "\n[your reasoning]\n\n" +
	answerMarker + "\n[your final answer]"

// Reply is a structured model response. Reasoning is empty when the model
// emitted no reasoning section.
type Reply struct {
	Reasoning string
	Answer    string
}

// SplitReasoning separates a raw model response into reasoning and answer.
// The text is split once on the answer marker; everything before it, with
// the reasoning marker stripped, is the reasoning. Without an answer marker
// the whole text is the answer.
func SplitReasoning(text string) Reply {
	before, after, found := strings.Cut(text, answerMarker)
	if !found {
		return Reply{Answer: strings.TrimSpace(text)}
	}
	reasoning := strings.Replace(before, reasoningMarker, "", 1)
	return Reply{
		Reasoning: strings.TrimSpace(reasoning),
		Answer:    strings.TrimSpace(after),
	}
}
