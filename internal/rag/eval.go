package rag

import (
	"fmt"
	"strings"
)

// DefaultRelevanceThreshold marks a hit as relevant when estimating
// precision.
const DefaultRelevanceThreshold = 0.7

// Metrics is a heuristic quality signal derived from retrieval scores and
// answer shape. It is an estimate, not ground truth: recall in particular
// cannot be measured without knowing the full relevant set, so it is
// approximated from similarity scores.
type Metrics struct {
	RetrievalCount  int     `json:"retrieval_count"`
	MaxSimilarity   float64 `json:"max_similarity"`
	AvgSimilarity   float64 `json:"avg_similarity"`
	MinSimilarity   float64 `json:"min_similarity"`
	AnswerLength    int     `json:"answer_length"`
	AnswerWordCount int     `json:"answer_word_count"`
	UsedIntent      bool    `json:"used_intent"`
	IntentScore     float64 `json:"intent_score"`
	Confidence      float64 `json:"confidence"`
	Precision       float64 `json:"precision"`
	Recall          float64 `json:"recall"`
	F1Score         float64 `json:"f1_score"`
}

// Evaluate derives metrics for one answered query. relevanceThreshold
// decides which hits count as relevant for precision; pass 0 for the
// default.
func Evaluate(result *Result, relevanceThreshold float64) Metrics {
	if relevanceThreshold <= 0 {
		relevanceThreshold = DefaultRelevanceThreshold
	}

	m := Metrics{
		RetrievalCount:  len(result.Hits),
		AnswerLength:    len(result.Reply.Answer),
		AnswerWordCount: len(strings.Fields(result.Reply.Answer)),
		UsedIntent:      result.UsedIntent,
		IntentScore:     result.IntentScore,
	}

	if len(result.Hits) > 0 {
		m.MaxSimilarity = result.Hits[0].Similarity
		m.MinSimilarity = result.Hits[0].Similarity
		var sum float64
		relevant := 0
		for _, hit := range result.Hits {
			sum += hit.Similarity
			m.MaxSimilarity = max(m.MaxSimilarity, hit.Similarity)
			m.MinSimilarity = min(m.MinSimilarity, hit.Similarity)
			if hit.Similarity >= relevanceThreshold {
				relevant++
			}
		}
		m.AvgSimilarity = sum / float64(len(result.Hits))
		m.Precision = float64(relevant) / float64(len(result.Hits))
	}

	m.Confidence = estimateConfidence(m)
	m.Recall = estimateRecall(m)
	if m.Precision+m.Recall > 0 {
		m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	return m
}

// estimateConfidence prefers the intent score on a cache hit, then the best
// retrieval similarity, and finally falls back to an answer-shape estimate
// for answers produced with no retrieval at all.
func estimateConfidence(m Metrics) float64 {
	switch {
	case m.UsedIntent && m.IntentScore > 0:
		return min(m.IntentScore, 1.0)
	case m.MaxSimilarity > 0:
		return min(m.MaxSimilarity, 1.0)
	case m.AnswerLength > 0:
		// Longer, more complete answers get a higher estimate; the range
		// is capped at [0.5, 0.8] because nothing was retrieved to back
		// the answer up.
		lengthFactor := min(float64(m.AnswerLength)/500.0, 1.0)
		completeness := 0.7
		if m.AnswerWordCount > 10 {
			completeness = 1.0
		}
		return 0.5 + 0.3*lengthFactor*completeness
	default:
		return 0
	}
}

// estimateRecall treats a strong intent match as high recall; otherwise the
// average similarity stands in for how much of the relevant material was
// likely retrieved.
func estimateRecall(m Metrics) float64 {
	switch {
	case m.UsedIntent && m.IntentScore >= 0.8:
		return min(m.IntentScore, 1.0)
	case m.AvgSimilarity > 0:
		return min(m.AvgSimilarity, 1.0)
	default:
		return 0
	}
}

// FormatMetrics renders metrics as flat display rows, grouped for a
// metrics panel. Zero scores render as "N/A".
func FormatMetrics(m Metrics) map[string]string {
	display := map[string]string{
		"retrieved_documents": fmt.Sprintf("%d", m.RetrievalCount),
		"answer_length":       fmt.Sprintf("%d chars", m.AnswerLength),
		"answer_words":        fmt.Sprintf("%d words", m.AnswerWordCount),
		"used_intent_space":   fmt.Sprintf("%t", m.UsedIntent),
		"max_similarity":      formatScore(m.MaxSimilarity),
		"avg_similarity":      formatScore(m.AvgSimilarity),
		"min_similarity":      formatScore(m.MinSimilarity),
		"intent_score":        formatScore(m.IntentScore),
		"confidence":          formatScore(m.Confidence),
		"precision":           formatScore(m.Precision),
		"recall":              formatScore(m.Recall),
		"f1_score":            formatScore(m.F1Score),
	}
	return display
}

func formatScore(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", v)
}
