package llm

import (
	"errors"
	"testing"
)

func TestSplitReasoning(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantReasoning string
		wantAnswer    string
	}{
		{
			name: "both sections",
			input: "**Reasoning:**\nThe user asks about deployment.\n\n" +
				"**Answer:**\nRun the release script.",
			wantReasoning: "The user asks about deployment.",
			wantAnswer:    "Run the release script.",
		},
		{
			name:          "no markers means plain answer",
			input:         "Just a direct answer.",
			wantReasoning: "",
			wantAnswer:    "Just a direct answer.",
		},
		{
			name:          "answer marker without reasoning marker",
			input:         "some preamble\n**Answer:**\nThe answer.",
			wantReasoning: "some preamble",
			wantAnswer:    "The answer.",
		},
		{
			name:          "only splits on first answer marker",
			input:         "**Reasoning:**\nthink\n**Answer:**\nfirst\n**Answer:**\nsecond",
			wantReasoning: "think",
			wantAnswer:    "first\n**Answer:**\nsecond",
		},
		{
			name:          "empty input",
			input:         "",
			wantReasoning: "",
			wantAnswer:    "",
		},
		{
			name:          "whitespace is trimmed",
			input:         "**Reasoning:**\n  padded  \n\n**Answer:**\n  answer  \n",
			wantReasoning: "padded",
			wantAnswer:    "answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := SplitReasoning(tt.input)
			if reply.Reasoning != tt.wantReasoning {
				t.Errorf("Reasoning = %q, want %q", reply.Reasoning, tt.wantReasoning)
			}
			if reply.Answer != tt.wantAnswer {
				t.Errorf("Answer = %q, want %q", reply.Answer, tt.wantAnswer)
			}
		})
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 rate limit exceeded"), true},
		{"quota", errors.New("quota exceeded for model"), true},
		{"server error", errors.New("HTTP 503 service unavailable"), true},
		{"timeout", errors.New("request timeout"), true},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"bad request", errors.New("400 invalid argument"), false},
		{"auth failure", errors.New("401 unauthorized"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
