package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/trispace-io/trispace/internal/feedback"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/llm"
	"github.com/trispace-io/trispace/internal/rag"
)

// Handler dependencies as consumer-defined interfaces so tests can
// substitute mocks.

// Pinger is the readiness-check surface of the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Answerer resolves questions through the retrieval orchestrator.
type Answerer interface {
	Answer(ctx context.Context, query string, params rag.Params, stream llm.StreamCallback) (*rag.Result, error)
	AnswerDirect(ctx context.Context, query string, withReasoning bool, stream llm.StreamCallback) (*rag.Result, error)
	DefaultParams() rag.Params
}

// FeedbackLog records interactions and serves feedback queries.
type FeedbackLog interface {
	Record(ctx context.Context, question, answer string, sources []string) (uuid.UUID, error)
	Attach(ctx context.Context, id uuid.UUID, rating *int, correction string) error
	List(ctx context.Context, filter feedback.ListFilter) ([]feedback.Interaction, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FrequentQuestions(ctx context.Context, minCount int64, limit int32) ([]feedback.QuestionGroup, error)
	HighQualityPairs(ctx context.Context, minRating int, limit int32) ([]feedback.Interaction, error)
}

// IntentRebuilder rebuilds the intent space.
type IntentRebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

// KnowledgeRefresher rebuilds the knowledge space from its source directory.
type KnowledgeRefresher interface {
	RefreshKnowledge(ctx context.Context) (int, error)
}

// IntentPairSource reads curated question/answer pairs from disk.
type IntentPairSource interface {
	LoadIntentDir(dir string) ([]index.Document, error)
}
