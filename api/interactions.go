package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/trispace-io/trispace/internal/feedback"
	"github.com/trispace-io/trispace/internal/log"
	"github.com/trispace-io/trispace/internal/rag"
)

// List pagination bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
	MaxListOffset    = 100000 // Reasonable upper bound for pagination offset

	// AutoRebuildTimeout bounds the background intent rebuild kicked off
	// by strong feedback.
	AutoRebuildTimeout = 5 * time.Minute
)

// InteractionHandler handles feedback log endpoints.
type InteractionHandler struct {
	feedback FeedbackLog
	promoter IntentRebuilder
	logger   log.Logger
}

// NewInteractionHandler creates a new interaction handler.
func NewInteractionHandler(fb FeedbackLog, promoter IntentRebuilder, logger log.Logger) *InteractionHandler {
	return &InteractionHandler{feedback: fb, promoter: promoter, logger: logger}
}

// RegisterRoutes registers interaction routes on the given mux.
func (h *InteractionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/interactions", h.list)
	mux.HandleFunc("POST /api/interactions/{id}/feedback", h.attachFeedback)
	mux.HandleFunc("DELETE /api/interactions/{id}", h.delete)
}

// InteractionJSON is the wire shape of one interaction.
type InteractionJSON struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Sources    []string  `json:"sources,omitempty"`
	Rating     *int      `json:"rating"`
	Correction string    `json:"correction,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toInteractionJSON(in feedback.Interaction) InteractionJSON {
	return InteractionJSON{
		ID:         in.ID.String(),
		Question:   in.Question,
		Answer:     in.Answer,
		Sources:    in.Sources,
		Rating:     in.Rating,
		Correction: in.Correction,
		CreatedAt:  in.CreatedAt,
	}
}

// list returns recorded interactions with pagination support.
// Query parameters:
//   - rating: -1 for unrated only, n >= 0 for minimum rating n
//   - limit: maximum number to return (default: 50, max: 1000)
//   - offset: number to skip (default: 0)
func (h *InteractionHandler) list(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		h.logger.Error("feedback log is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	filter := feedback.ListFilter{
		Limit:  int32(parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)),
		Offset: int32(parseIntParam(r, "offset", 0, 0, MaxListOffset)),
	}
	if ratingStr := r.URL.Query().Get("rating"); ratingStr != "" {
		rating, err := strconv.Atoi(ratingStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "rating must be an integer")
			return
		}
		if rating < 0 {
			filter.Unrated = true
		} else {
			filter.MinRating = &rating
		}
	}

	interactions, err := h.feedback.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list interactions", "error", err)
		http.Error(w, "failed to list interactions", http.StatusInternalServerError)
		return
	}

	total, err := h.feedback.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count interactions", "error", err)
		http.Error(w, "failed to count interactions", http.StatusInternalServerError)
		return
	}

	items := make([]InteractionJSON, 0, len(interactions))
	for _, in := range interactions {
		items = append(items, toInteractionJSON(in))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"interactions": items,
		"total":        total,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

// FeedbackRequest is the request body for attaching feedback.
type FeedbackRequest struct {
	Rating     *int   `json:"rating"`
	Correction string `json:"correction"`
}

// attachFeedback updates an interaction's rating and correction in place.
// Strong feedback (rating >= 4 with a correction) triggers a background
// intent space rebuild so the correction starts serving immediately.
func (h *InteractionHandler) attachFeedback(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		h.logger.Error("feedback log is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "invalid interaction id")
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "invalid request body")
		return
	}

	if err := h.feedback.Attach(r.Context(), id, req.Rating, req.Correction); err != nil {
		writeDomainError(w, err)
		return
	}

	if h.promoter != nil && rag.ShouldAutoRebuild(req.Rating, req.Correction) {
		h.rebuildAsync(r.Context(), id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// rebuildAsync promotes in the background, detached from the request's
// cancellation so a closed connection cannot abort the rebuild.
func (h *InteractionHandler) rebuildAsync(reqCtx context.Context, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), AutoRebuildTimeout)
	go func() {
		defer cancel()
		count, err := h.promoter.Rebuild(ctx)
		if err != nil {
			h.logger.Error("auto rebuild after feedback failed",
				"interaction_id", id, "error", err)
			return
		}
		h.logger.Info("intent space rebuilt after feedback",
			"interaction_id", id, "documents", count)
	}()
}

// delete removes an interaction.
func (h *InteractionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		h.logger.Error("feedback log is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "invalid interaction id")
		return
	}

	if err := h.feedback.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
