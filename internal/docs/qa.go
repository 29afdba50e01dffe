package docs

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Q/A file line markers. A pair needs both: the question runs from its Q:
// marker to the first A: marker, the answer from there to the next Q: marker
// or end of file.
const (
	questionMarker = "Q:"
	answerMarker   = "A:"
)

// Pair is one curated question/answer pair from an intent source file.
type Pair struct {
	Question string
	Answer   string
}

// ParseQAPairs reads Q:/A: formatted text and returns the pairs it contains.
// Both markers must be present for a pair to count; pairs whose question
// trims to empty are dropped. Questions and answers may span multiple lines.
func ParseQAPairs(r io.Reader) ([]Pair, error) {
	var (
		pairs    []Pair
		question strings.Builder
		answer   strings.Builder
		inAnswer bool
		open     bool
	)

	flush := func() {
		if !open || !inAnswer {
			return
		}
		q := strings.TrimSpace(question.String())
		if q != "" {
			pairs = append(pairs, Pair{
				Question: q,
				Answer:   strings.TrimSpace(answer.String()),
			})
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, questionMarker):
			flush()
			question.Reset()
			answer.Reset()
			inAnswer = false
			open = true
			question.WriteString(strings.TrimPrefix(trimmed, questionMarker))
		case strings.HasPrefix(trimmed, answerMarker) && open && !inAnswer:
			inAnswer = true
			answer.WriteString(strings.TrimPrefix(trimmed, answerMarker))
		case open && inAnswer:
			answer.WriteString("\n")
			answer.WriteString(line)
		case open:
			question.WriteString("\n")
			question.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning Q/A content: %w", err)
	}
	flush()

	return pairs, nil
}
