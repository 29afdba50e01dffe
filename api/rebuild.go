package api

import (
	"net/http"

	"github.com/trispace-io/trispace/internal/log"
	"github.com/trispace-io/trispace/internal/rag"
)

// IndexHandler serves manual index rebuilds.
type IndexHandler struct {
	lifecycle KnowledgeRefresher
	promoter  IntentRebuilder
	logger    log.Logger
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(lifecycle KnowledgeRefresher, promoter IntentRebuilder, logger log.Logger) *IndexHandler {
	return &IndexHandler{lifecycle: lifecycle, promoter: promoter, logger: logger}
}

// RegisterRoutes registers index routes on the given mux.
func (h *IndexHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/index/knowledge/refresh", h.refreshKnowledge)
	mux.HandleFunc("POST /api/index/intent/refresh", h.refreshIntent)
}

// refreshKnowledge re-reads the knowledge directory and replaces the
// knowledge space.
func (h *IndexHandler) refreshKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.lifecycle == nil {
		h.logger.Error("lifecycle is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	count, err := h.lifecycle.RefreshKnowledge(r.Context())
	if err != nil {
		h.logger.Error("knowledge refresh failed", "error", err)
		writeDomainError(w, err)
		return
	}

	h.logger.Info("knowledge space refreshed", "documents", count)
	writeJSON(w, http.StatusOK, map[string]any{"documents": count})
}

// refreshIntent rebuilds the intent space from curated files plus
// positive feedback. An empty union is a conflict, not a wipe: the
// existing index stays live.
func (h *IndexHandler) refreshIntent(w http.ResponseWriter, r *http.Request) {
	if h.promoter == nil {
		h.logger.Error("promoter is nil")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	count, err := h.promoter.Rebuild(r.Context())
	if err != nil {
		if rag.IsEmptyRebuild(err) {
			writeError(w, http.StatusConflict, "index_rebuild_failure",
				"no curated pairs or positive feedback to promote")
			return
		}
		h.logger.Error("intent rebuild failed", "error", err)
		writeDomainError(w, err)
		return
	}

	h.logger.Info("intent space rebuilt", "documents", count)
	writeJSON(w, http.StatusOK, map[string]any{"documents": count})
}
