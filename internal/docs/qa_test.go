package docs

import (
	"strings"
	"testing"
)

func TestParseQAPairs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Pair
	}{
		{
			name:  "single pair",
			input: "Q: How do I reset my password?\nA: Use the account settings page.",
			want: []Pair{
				{Question: "How do I reset my password?", Answer: "Use the account settings page."},
			},
		},
		{
			name: "multiple pairs",
			input: `Q: First question?
A: First answer.
Q: Second question?
A: Second answer.`,
			want: []Pair{
				{Question: "First question?", Answer: "First answer."},
				{Question: "Second question?", Answer: "Second answer."},
			},
		},
		{
			name: "multi-line answer runs to next question",
			input: `Q: What are the steps?
A: Step one.
Step two.
Step three.
Q: Next?
A: Done.`,
			want: []Pair{
				{Question: "What are the steps?", Answer: "Step one.\nStep two.\nStep three."},
				{Question: "Next?", Answer: "Done."},
			},
		},
		{
			name: "multi-line question",
			input: `Q: What happens when the input
spans several lines?
A: It is joined into one question.`,
			want: []Pair{
				{Question: "What happens when the input\nspans several lines?", Answer: "It is joined into one question."},
			},
		},
		{
			name:  "empty question is dropped",
			input: "Q:\nA: An answer without a question.\nQ: Kept?\nA: Yes.",
			want: []Pair{
				{Question: "Kept?", Answer: "Yes."},
			},
		},
		{
			name:  "question without answer marker is dropped",
			input: "Q: Orphan question\nQ: Complete?\nA: Yes.",
			want: []Pair{
				{Question: "Complete?", Answer: "Yes."},
			},
		},
		{
			name:  "empty answer is kept",
			input: "Q: Known question, no answer yet?\nA:",
			want: []Pair{
				{Question: "Known question, no answer yet?", Answer: ""},
			},
		},
		{
			name:  "whitespace is trimmed",
			input: "Q:    padded question   \nA:    padded answer   ",
			want: []Pair{
				{Question: "padded question", Answer: "padded answer"},
			},
		},
		{
			name:  "no markers",
			input: "just some prose\nwith no structure",
			want:  nil,
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "leading prose before first question is ignored",
			input: "# FAQ file\n\nQ: Real question?\nA: Real answer.",
			want: []Pair{
				{Question: "Real question?", Answer: "Real answer."},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQAPairs(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseQAPairs() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len(pairs) = %d, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Question != tt.want[i].Question {
					t.Errorf("pair %d question = %q, want %q", i, got[i].Question, tt.want[i].Question)
				}
				if got[i].Answer != tt.want[i].Answer {
					t.Errorf("pair %d answer = %q, want %q", i, got[i].Answer, tt.want[i].Answer)
				}
			}
		})
	}
}
