package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/trispace-io/trispace/internal/log"
	"github.com/trispace-io/trispace/internal/rag"
)

// MaxQuestionLength bounds the accepted question size.
const MaxQuestionLength = 10000

// AskHandler handles the question-answering endpoint.
type AskHandler struct {
	orchestrator Answerer
	feedback     FeedbackLog
	logger       log.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(orchestrator Answerer, feedback FeedbackLog, logger log.Logger) *AskHandler {
	return &AskHandler{orchestrator: orchestrator, feedback: feedback, logger: logger}
}

// RegisterRoutes registers the ask route on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.ask)
}

// AskRequest is the request body for asking a question.
// Zero-valued retrieval knobs fall back to the configured defaults.
// RAG defaults to true; rag=false skips retrieval entirely and answers
// as a plain assistant.
type AskRequest struct {
	Question        string   `json:"question"`
	KIntent         int      `json:"k_intent"`
	KKnowledge      int      `json:"k_knowledge"`
	IntentThreshold *float64 `json:"intent_threshold"`
	ShowReasoning   bool     `json:"show_reasoning"`
	Stream          bool     `json:"stream"`
	RAG             *bool    `json:"rag"`
}

// AskResponse is the answer payload, sent as the response body or as the
// terminal SSE event.
type AskResponse struct {
	InteractionID string      `json:"interaction_id,omitempty"`
	Answer        string      `json:"answer"`
	Reasoning     string      `json:"reasoning,omitempty"`
	UsedIntent    bool        `json:"used_intent"`
	IntentScore   float64     `json:"intent_score"`
	Sources       []string    `json:"sources,omitempty"`
	Metrics       rag.Metrics `json:"metrics"`
}

// ask answers one question, either as a single JSON response or as an SSE
// stream of token events terminated by a done event.
func (h *AskHandler) ask(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		h.logger.Error("orchestrator is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "question is required")
		return
	}
	if len(req.Question) > MaxQuestionLength {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "question too long")
		return
	}

	if req.Stream {
		h.askStream(w, r, req)
		return
	}

	result, err := h.answer(r.Context(), req, nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp, err := h.buildResponse(r.Context(), req.Question, result)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// askStream answers over SSE: token events while the model produces text,
// then a single done event carrying the full response payload.
func (h *AskHandler) askStream(w http.ResponseWriter, r *http.Request, req AskRequest) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	ctx := r.Context()
	stream := func(ctx context.Context, chunk string) error {
		return sse.writeEvent(ctx, "token", map[string]string{"text": chunk})
	}

	result, err := h.answer(ctx, req, stream)
	if err != nil {
		code, _ := errorCode(err)
		if werr := sse.writeError(code, err.Error()); werr != nil {
			h.logger.Warn("writing SSE error event", "error", werr)
		}
		return
	}

	if result.Reply.Reasoning != "" {
		if err := sse.writeEvent(ctx, "reasoning", map[string]string{"text": result.Reply.Reasoning}); err != nil {
			h.logger.Warn("writing SSE reasoning event", "error", err)
			return
		}
	}

	resp, err := h.buildResponse(ctx, req.Question, result)
	if err != nil {
		code, _ := errorCode(err)
		if werr := sse.writeError(code, err.Error()); werr != nil {
			h.logger.Warn("writing SSE error event", "error", werr)
		}
		return
	}

	if err := sse.writeEvent(ctx, "done", resp); err != nil {
		h.logger.Warn("writing SSE done event", "error", err)
	}
}

// answer routes to the retrieval or direct path per the request.
func (h *AskHandler) answer(ctx context.Context, req AskRequest, stream func(context.Context, string) error) (*rag.Result, error) {
	if req.RAG != nil && !*req.RAG {
		return h.orchestrator.AnswerDirect(ctx, req.Question, req.ShowReasoning, stream)
	}

	params := h.orchestrator.DefaultParams()
	if req.KIntent != 0 {
		params.KIntent = req.KIntent
	}
	if req.KKnowledge != 0 {
		params.KKnowledge = req.KKnowledge
	}
	if req.IntentThreshold != nil {
		params.IntentThreshold = *req.IntentThreshold
	}
	params.WithReasoning = req.ShowReasoning

	return h.orchestrator.Answer(ctx, req.Question, params, stream)
}

// buildResponse records the interaction and assembles the payload.
// A lost interaction record breaks the feedback loop, so a write failure
// fails the request rather than degrading it quietly.
func (h *AskHandler) buildResponse(ctx context.Context, question string, result *rag.Result) (AskResponse, error) {
	resp := AskResponse{
		Answer:      result.Reply.Answer,
		Reasoning:   result.Reply.Reasoning,
		UsedIntent:  result.UsedIntent,
		IntentScore: result.IntentScore,
		Sources:     result.Sources(),
		Metrics:     rag.Evaluate(result, 0),
	}

	if h.feedback != nil {
		id, err := h.feedback.Record(ctx, question, result.Reply.Answer, resp.Sources)
		if err != nil {
			h.logger.Error("recording interaction failed", "error", err)
			return AskResponse{}, fmt.Errorf("recording interaction: %w", err)
		}
		if id != uuid.Nil {
			resp.InteractionID = id.String()
		}
	}

	return resp, nil
}
