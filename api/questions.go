package api

import (
	"net/http"
	"time"

	"github.com/trispace-io/trispace/internal/docs"
	"github.com/trispace-io/trispace/internal/log"
)

// QuestionHandler serves aggregate views over the feedback log and the
// curated intent files.
type QuestionHandler struct {
	feedback  FeedbackLog
	intent    IntentPairSource
	intentDir string
	logger    log.Logger
}

// NewQuestionHandler creates a new question handler.
func NewQuestionHandler(fb FeedbackLog, intent IntentPairSource, intentDir string, logger log.Logger) *QuestionHandler {
	return &QuestionHandler{feedback: fb, intent: intent, intentDir: intentDir, logger: logger}
}

// RegisterRoutes registers question routes on the given mux.
func (h *QuestionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/questions/frequent", h.frequent)
	mux.HandleFunc("GET /api/questions/quality", h.quality)
	mux.HandleFunc("GET /api/intent/pairs", h.intentPairs)
}

// QuestionGroupJSON is the wire shape of one frequent-question group.
type QuestionGroupJSON struct {
	Question      string    `json:"question"`
	AskCount      int64     `json:"ask_count"`
	AvgRating     *float64  `json:"avg_rating"`
	FeedbackCount int64     `json:"feedback_count"`
	LastAsked     time.Time `json:"last_asked"`
}

// frequent returns questions asked at least min_count times, grouped by
// exact question text.
// Query parameters:
//   - min_count: minimum times asked (default: 2)
//   - limit: maximum groups to return (default: 50, max: 1000)
func (h *QuestionHandler) frequent(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		h.logger.Error("feedback log is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	minCount := parseIntParam(r, "min_count", 2, 1, 1000000)
	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)

	groups, err := h.feedback.FrequentQuestions(r.Context(), int64(minCount), int32(limit))
	if err != nil {
		h.logger.Error("failed to aggregate frequent questions", "error", err)
		http.Error(w, "failed to aggregate frequent questions", http.StatusInternalServerError)
		return
	}

	items := make([]QuestionGroupJSON, 0, len(groups))
	for _, g := range groups {
		items = append(items, QuestionGroupJSON{
			Question:      g.Question,
			AskCount:      g.AskCount,
			AvgRating:     g.AvgRating,
			FeedbackCount: g.FeedbackCount,
			LastAsked:     g.LastAsked,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"questions": items,
		"total":     len(items),
		"min_count": minCount,
	})
}

// quality returns the best-rated interactions, corrections first.
// Query parameters:
//   - min_rating: minimum rating to qualify (default: 4)
//   - limit: maximum pairs to return (default: 50, max: 1000)
func (h *QuestionHandler) quality(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		h.logger.Error("feedback log is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	minRating := parseIntParam(r, "min_rating", 4, 0, 5)
	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)

	pairs, err := h.feedback.HighQualityPairs(r.Context(), minRating, int32(limit))
	if err != nil {
		h.logger.Error("failed to list high-quality pairs", "error", err)
		http.Error(w, "failed to list high-quality pairs", http.StatusInternalServerError)
		return
	}

	items := make([]InteractionJSON, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, toInteractionJSON(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pairs":      items,
		"total":      len(items),
		"min_rating": minRating,
	})
}

// IntentPairJSON is the wire shape of one curated question/answer pair.
type IntentPairJSON struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source,omitempty"`
}

// intentPairs lists the curated question/answer pairs currently on disk.
// This reads the source files, not the index, so edits show up before the
// next promotion.
func (h *QuestionHandler) intentPairs(w http.ResponseWriter, r *http.Request) {
	if h.intent == nil {
		h.logger.Error("intent source is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	documents, err := h.intent.LoadIntentDir(h.intentDir)
	if err != nil {
		h.logger.Error("failed to load intent pairs", "dir", h.intentDir, "error", err)
		http.Error(w, "failed to load intent pairs", http.StatusInternalServerError)
		return
	}

	items := make([]IntentPairJSON, 0, len(documents))
	for _, doc := range documents {
		items = append(items, IntentPairJSON{
			Question: doc.Content,
			Answer:   doc.Metadata[docs.MetaAnswer],
			Source:   doc.Metadata[docs.MetaFileName],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pairs": items,
		"total": len(items),
	})
}
