package api

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/trispace-io/trispace/internal/feedback"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/llm"
	"github.com/trispace-io/trispace/internal/rag"
)

var errBoom = errors.New("boom")

// mockAnswerer implements Answerer.
type mockAnswerer struct {
	result       *rag.Result
	err          error
	directResult *rag.Result
	directErr    error
	streamChunks []string

	answerCalls int
	directCalls int
	lastQuery   string
	lastParams  rag.Params
}

func (m *mockAnswerer) Answer(ctx context.Context, query string, params rag.Params, stream llm.StreamCallback) (*rag.Result, error) {
	m.answerCalls++
	m.lastQuery = query
	m.lastParams = params
	if m.err != nil {
		return nil, m.err
	}
	if stream != nil {
		for _, chunk := range m.streamChunks {
			if err := stream(ctx, chunk); err != nil {
				return nil, err
			}
		}
	}
	return m.result, nil
}

func (m *mockAnswerer) AnswerDirect(ctx context.Context, query string, withReasoning bool, stream llm.StreamCallback) (*rag.Result, error) {
	m.directCalls++
	m.lastQuery = query
	if m.directErr != nil {
		return nil, m.directErr
	}
	return m.directResult, nil
}

func (m *mockAnswerer) DefaultParams() rag.Params {
	return rag.Params{KIntent: 1, KKnowledge: 3, IntentThreshold: 0.85}
}

// mockFeedbackLog implements FeedbackLog.
type mockFeedbackLog struct {
	recordID  uuid.UUID
	recordErr error
	attachErr error
	listed    []feedback.Interaction
	listErr   error
	total     int64
	deleteErr error
	groups    []feedback.QuestionGroup
	pairs     []feedback.Interaction
	queryErr  error

	recordCalls    int
	lastQuestion   string
	lastAnswer     string
	lastSources    []string
	lastAttachID   uuid.UUID
	lastRating     *int
	lastCorrection string
	lastFilter     feedback.ListFilter
	lastMinRating  int
	lastMinCount   int64
}

func (m *mockFeedbackLog) Record(ctx context.Context, question, answer string, sources []string) (uuid.UUID, error) {
	m.recordCalls++
	m.lastQuestion = question
	m.lastAnswer = answer
	m.lastSources = sources
	if m.recordErr != nil {
		return uuid.Nil, m.recordErr
	}
	return m.recordID, nil
}

func (m *mockFeedbackLog) Attach(ctx context.Context, id uuid.UUID, rating *int, correction string) error {
	m.lastAttachID = id
	m.lastRating = rating
	m.lastCorrection = correction
	return m.attachErr
}

func (m *mockFeedbackLog) List(ctx context.Context, filter feedback.ListFilter) ([]feedback.Interaction, error) {
	m.lastFilter = filter
	return m.listed, m.listErr
}

func (m *mockFeedbackLog) Count(ctx context.Context) (int64, error) {
	return m.total, nil
}

func (m *mockFeedbackLog) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteErr
}

func (m *mockFeedbackLog) FrequentQuestions(ctx context.Context, minCount int64, limit int32) ([]feedback.QuestionGroup, error) {
	m.lastMinCount = minCount
	return m.groups, m.queryErr
}

func (m *mockFeedbackLog) HighQualityPairs(ctx context.Context, minRating int, limit int32) ([]feedback.Interaction, error) {
	m.lastMinRating = minRating
	return m.pairs, m.queryErr
}

// mockRebuilder implements IntentRebuilder. Calls are observable through
// rebuilt, which receives once per Rebuild, so tests can wait for the
// background promotion goroutine.
type mockRebuilder struct {
	count int
	err   error

	mu      sync.Mutex
	calls   int
	rebuilt chan struct{}
}

func newMockRebuilder(count int, err error) *mockRebuilder {
	return &mockRebuilder{count: count, err: err, rebuilt: make(chan struct{}, 8)}
}

func (m *mockRebuilder) Rebuild(ctx context.Context) (int, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	m.rebuilt <- struct{}{}
	if m.err != nil {
		return 0, m.err
	}
	return m.count, nil
}

func (m *mockRebuilder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRefresher implements KnowledgeRefresher.
type mockRefresher struct {
	count int
	err   error
	calls int
}

func (m *mockRefresher) RefreshKnowledge(ctx context.Context) (int, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.count, nil
}

// mockPinger implements Pinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

// mockIntentSource implements IntentPairSource.
type mockIntentSource struct {
	documents []index.Document
	err       error
	lastDir   string
}

func (m *mockIntentSource) LoadIntentDir(dir string) ([]index.Document, error) {
	m.lastDir = dir
	return m.documents, m.err
}
