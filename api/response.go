package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/trispace-io/trispace/internal/feedback"
	"github.com/trispace-io/trispace/internal/rag"
)

// writeJSON writes a JSON response with the given status code.
// Note: If encoding fails after WriteHeader is called, there's no way to
// notify the client since the status code is already sent. The error is
// logged for debugging but doesn't affect the response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// errorCode maps a domain error to its wire code and HTTP status.
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, rag.ErrInvalidParameter):
		return "invalid_parameter", http.StatusBadRequest
	case errors.Is(err, rag.ErrCapabilityUnavailable):
		return "capability_unavailable", http.StatusServiceUnavailable
	case errors.Is(err, rag.ErrRetrievalFailure):
		return "retrieval_failure", http.StatusBadGateway
	case errors.Is(err, rag.ErrGenerationFailure):
		return "generation_failure", http.StatusBadGateway
	case errors.Is(err, rag.ErrIndexRebuildFailure):
		return "index_rebuild_failure", http.StatusInternalServerError
	case errors.Is(err, feedback.ErrInteractionNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, feedback.ErrInvalidRating),
		errors.Is(err, feedback.ErrEmptyFeedback),
		errors.Is(err, feedback.ErrEmptyQuestion):
		return "invalid_parameter", http.StatusBadRequest
	default:
		return "internal", http.StatusInternalServerError
	}
}

// writeDomainError maps err through the taxonomy and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	code, status := errorCode(err)
	writeError(w, status, code, err.Error())
}
