package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trispace-io/trispace/internal/feedback"
)

func doRequest(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestAttachFeedback(t *testing.T) {
	id := uuid.New()

	t.Run("updates rating and correction", func(t *testing.T) {
		fb := &mockFeedbackLog{}
		handler := newTestServer(Deps{Feedback: fb})

		w := doRequest(handler, http.MethodPost,
			"/api/interactions/"+id.String()+"/feedback",
			`{"rating":4,"correction":""}`)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, id, fb.lastAttachID)
		require.NotNil(t, fb.lastRating)
		assert.Equal(t, 4, *fb.lastRating)
	})

	t.Run("invalid id", func(t *testing.T) {
		handler := newTestServer(Deps{Feedback: &mockFeedbackLog{}})

		w := doRequest(handler, http.MethodPost,
			"/api/interactions/not-a-uuid/feedback", `{"rating":4}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown interaction", func(t *testing.T) {
		fb := &mockFeedbackLog{attachErr: feedback.ErrInteractionNotFound}
		handler := newTestServer(Deps{Feedback: fb})

		w := doRequest(handler, http.MethodPost,
			"/api/interactions/"+id.String()+"/feedback", `{"rating":4}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("out-of-range rating", func(t *testing.T) {
		fb := &mockFeedbackLog{attachErr: feedback.ErrInvalidRating}
		handler := newTestServer(Deps{Feedback: fb})

		w := doRequest(handler, http.MethodPost,
			"/api/interactions/"+id.String()+"/feedback", `{"rating":9}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("strong feedback triggers a background rebuild", func(t *testing.T) {
		rebuilder := newMockRebuilder(5, nil)
		handler := newTestServer(Deps{Feedback: &mockFeedbackLog{}, Promoter: rebuilder})

		w := doRequest(handler, http.MethodPost,
			"/api/interactions/"+id.String()+"/feedback",
			`{"rating":5,"correction":"the real answer"}`)

		assert.Equal(t, http.StatusNoContent, w.Code)

		select {
		case <-rebuilder.rebuilt:
		case <-time.After(2 * time.Second):
			t.Fatal("rebuild was not triggered")
		}
		assert.Equal(t, 1, rebuilder.callCount())
	})

	t.Run("weak feedback does not rebuild", func(t *testing.T) {
		rebuilder := newMockRebuilder(5, nil)
		handler := newTestServer(Deps{Feedback: &mockFeedbackLog{}, Promoter: rebuilder})

		w := doRequest(handler, http.MethodPost,
			"/api/interactions/"+id.String()+"/feedback",
			`{"rating":3,"correction":"better wording"}`)

		assert.Equal(t, http.StatusNoContent, w.Code)

		select {
		case <-rebuilder.rebuilt:
			t.Fatal("rebuild triggered for rating below the bar")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestListInteractions(t *testing.T) {
	rating := 5
	sample := feedback.Interaction{
		ID:       uuid.New(),
		Question: "q",
		Answer:   "a",
		Rating:   &rating,
	}

	t.Run("returns interactions with pagination", func(t *testing.T) {
		fb := &mockFeedbackLog{listed: []feedback.Interaction{sample}, total: 12}
		handler := newTestServer(Deps{Feedback: fb})

		w := doRequest(handler, http.MethodGet, "/api/interactions?limit=5&offset=10", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":12`)
		assert.Equal(t, int32(5), fb.lastFilter.Limit)
		assert.Equal(t, int32(10), fb.lastFilter.Offset)
	})

	t.Run("rating=-1 filters unrated", func(t *testing.T) {
		fb := &mockFeedbackLog{}
		handler := newTestServer(Deps{Feedback: fb})

		w := doRequest(handler, http.MethodGet, "/api/interactions?rating=-1", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, fb.lastFilter.Unrated)
		assert.Nil(t, fb.lastFilter.MinRating)
	})

	t.Run("rating=4 filters by minimum rating", func(t *testing.T) {
		fb := &mockFeedbackLog{}
		handler := newTestServer(Deps{Feedback: fb})

		w := doRequest(handler, http.MethodGet, "/api/interactions?rating=4", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, fb.lastFilter.MinRating)
		assert.Equal(t, 4, *fb.lastFilter.MinRating)
	})

	t.Run("non-numeric rating rejected", func(t *testing.T) {
		handler := newTestServer(Deps{Feedback: &mockFeedbackLog{}})

		w := doRequest(handler, http.MethodGet, "/api/interactions?rating=bad", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteInteraction(t *testing.T) {
	id := uuid.New()

	t.Run("deletes", func(t *testing.T) {
		handler := newTestServer(Deps{Feedback: &mockFeedbackLog{}})

		w := doRequest(handler, http.MethodDelete, "/api/interactions/"+id.String(), "")

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		fb := &mockFeedbackLog{deleteErr: feedback.ErrInteractionNotFound}
		handler := newTestServer(Deps{Feedback: fb})

		w := doRequest(handler, http.MethodDelete, "/api/interactions/"+id.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
