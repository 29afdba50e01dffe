package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/rag"
)

func TestRefreshKnowledge(t *testing.T) {
	t.Run("replaces the collection", func(t *testing.T) {
		refresher := &mockRefresher{count: 17}
		handler := newTestServer(Deps{Lifecycle: refresher})

		w := doRequest(handler, http.MethodPost, "/api/index/knowledge/refresh", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"documents":17`)
		assert.Equal(t, 1, refresher.calls)
	})

	t.Run("rebuild failure", func(t *testing.T) {
		refresher := &mockRefresher{err: fmt.Errorf("%w: disk gone", rag.ErrIndexRebuildFailure)}
		handler := newTestServer(Deps{Lifecycle: refresher})

		w := doRequest(handler, http.MethodPost, "/api/index/knowledge/refresh", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "index_rebuild_failure")
	})
}

func TestRefreshIntent(t *testing.T) {
	t.Run("promotes", func(t *testing.T) {
		rebuilder := newMockRebuilder(9, nil)
		handler := newTestServer(Deps{Promoter: rebuilder})

		w := doRequest(handler, http.MethodPost, "/api/index/intent/refresh", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"documents":9`)
	})

	t.Run("empty union is a conflict, not a wipe", func(t *testing.T) {
		err := fmt.Errorf("%w: %w", rag.ErrIndexRebuildFailure, index.ErrEmptyRebuild)
		rebuilder := newMockRebuilder(0, err)
		handler := newTestServer(Deps{Promoter: rebuilder})

		w := doRequest(handler, http.MethodPost, "/api/index/intent/refresh", "")

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("other failures are internal", func(t *testing.T) {
		rebuilder := newMockRebuilder(0, fmt.Errorf("%w: db down", rag.ErrIndexRebuildFailure))
		handler := newTestServer(Deps{Promoter: rebuilder})

		w := doRequest(handler, http.MethodPost, "/api/index/intent/refresh", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
