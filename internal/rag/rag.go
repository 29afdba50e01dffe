// Package rag implements the three-space retrieval orchestrator.
//
// Queries hit the intent space first: an index of curated and promoted
// question/answer pairs acting as an answer cache. When the best intent hit
// clears the similarity threshold its stored answer is returned directly,
// with no knowledge-space query and no model call. Everything else falls
// through to knowledge-space retrieval plus generation.
//
// Intent-space failures are treated as cache misses and never block the
// fallback path; knowledge-space and generation failures surface to the
// caller.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trispace-io/trispace/internal/docs"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/llm"
	"github.com/trispace-io/trispace/internal/log"
)

// Searcher is the read side of the vector index the orchestrator uses.
// Interfaces are defined by the consumer so tests can substitute mocks.
type Searcher interface {
	Search(ctx context.Context, collection, query string, opts ...index.SearchOption) ([]index.Result, error)
	Count(ctx context.Context, collection string) (int, error)
}

// Generator produces the synthesized answer on the knowledge path.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Reply, error)
}

// Params are the per-query retrieval knobs. WithReasoning asks the model
// to separate its reasoning from the answer for this query regardless of
// the orchestrator-level default.
type Params struct {
	KIntent         int
	KKnowledge      int
	IntentThreshold float64
	WithReasoning   bool
}

// Result is one answered query.
// UsedIntent reports whether the answer came straight from the intent
// cache; IntentScore is the best intent similarity observed either way.
type Result struct {
	Reply       llm.Reply
	Hits        []index.Result
	UsedIntent  bool
	IntentScore float64
}

// Sources returns the distinct source names of the result's hits.
func (r *Result) Sources() []string {
	seen := make(map[string]bool, len(r.Hits))
	var sources []string
	for _, hit := range r.Hits {
		name := hit.Document.Metadata[docs.MetaFileName]
		if name == "" {
			name = hit.Document.ID
		}
		if !seen[name] {
			seen[name] = true
			sources = append(sources, name)
		}
	}
	return sources
}

// Config configures an Orchestrator.
type Config struct {
	DefaultKIntent         int
	DefaultKKnowledge      int
	DefaultIntentThreshold float64
	SystemPrompt           string
	WithReasoning          bool
}

// defaultSystemPrompt frames the generation call on the knowledge path.
const defaultSystemPrompt = "You are a helpful assistant. Answer the question " +
	"using the provided context. If the context does not contain the answer, " +
	"say so instead of guessing."

// Orchestrator routes queries across the intent and knowledge spaces.
// It is safe for concurrent use by multiple goroutines.
type Orchestrator struct {
	searcher  Searcher
	generator Generator
	cfg       Config
	logger    log.Logger
}

// New creates an Orchestrator. searcher must be non-nil; a nil generator
// disables the knowledge path (queries that miss the intent cache fail
// with ErrCapabilityUnavailable). logger may be nil.
func New(searcher Searcher, generator Generator, cfg Config, logger log.Logger) (*Orchestrator, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if cfg.DefaultKIntent <= 0 {
		cfg.DefaultKIntent = 1
	}
	if cfg.DefaultKKnowledge <= 0 {
		cfg.DefaultKKnowledge = 3
	}
	if cfg.DefaultIntentThreshold <= 0 || cfg.DefaultIntentThreshold > 1 {
		cfg.DefaultIntentThreshold = 0.85
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Orchestrator{
		searcher:  searcher,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// DefaultParams returns the configured retrieval defaults.
func (o *Orchestrator) DefaultParams() Params {
	return Params{
		KIntent:         o.cfg.DefaultKIntent,
		KKnowledge:      o.cfg.DefaultKKnowledge,
		IntentThreshold: o.cfg.DefaultIntentThreshold,
	}
}

// Answer resolves one query. stream may be nil; when set, generated tokens
// are forwarded to it as they arrive (intent-cache hits never stream, the
// cached answer is returned whole).
func (o *Orchestrator) Answer(ctx context.Context, query string, params Params, stream llm.StreamCallback) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidParameter)
	}
	if params.KIntent <= 0 {
		return nil, fmt.Errorf("%w: k_intent must be positive, got %d", ErrInvalidParameter, params.KIntent)
	}
	if params.KKnowledge <= 0 {
		return nil, fmt.Errorf("%w: k_knowledge must be positive, got %d", ErrInvalidParameter, params.KKnowledge)
	}
	if params.IntentThreshold < 0 || params.IntentThreshold > 1 {
		return nil, fmt.Errorf("%w: intent_threshold must be in [0,1], got %g", ErrInvalidParameter, params.IntentThreshold)
	}

	// Fast path: intent cache. Failures here are misses, never fatal.
	intentHits, intentScore := o.queryIntent(ctx, query, params.KIntent)
	if len(intentHits) > 0 && intentScore >= params.IntentThreshold {
		answer := intentHits[0].Document.Metadata[docs.MetaAnswer]
		if strings.TrimSpace(answer) != "" {
			o.logger.Debug("intent cache hit",
				"score", intentScore, "threshold", params.IntentThreshold)
			return &Result{
				Reply:       llm.Reply{Answer: answer},
				Hits:        intentHits,
				UsedIntent:  true,
				IntentScore: intentScore,
			}, nil
		}
	}

	// Miss path: knowledge retrieval plus generation.
	if o.generator == nil {
		return nil, fmt.Errorf("%w: no generation backend configured", ErrCapabilityUnavailable)
	}

	knowledgeHits, err := o.searcher.Search(ctx, index.CollectionKnowledge, query,
		index.WithTopK(params.KKnowledge))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}

	reply, err := o.generate(ctx, buildPrompt(query, knowledgeHits), params.WithReasoning, stream)
	if err != nil {
		return nil, err
	}

	return &Result{
		Reply:       reply,
		Hits:        knowledgeHits,
		UsedIntent:  false,
		IntentScore: intentScore,
	}, nil
}

// AnswerDirect generates a reply without consulting either space. This is
// the plain assistant path for callers that opt out of retrieval.
func (o *Orchestrator) AnswerDirect(ctx context.Context, query string, withReasoning bool, stream llm.StreamCallback) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidParameter)
	}
	if o.generator == nil {
		return nil, fmt.Errorf("%w: no generation backend configured", ErrCapabilityUnavailable)
	}

	reply, err := o.generate(ctx, buildPrompt(query, nil), withReasoning, stream)
	if err != nil {
		return nil, err
	}
	return &Result{Reply: reply}, nil
}

// generate runs the model call and maps its failures to the error
// taxonomy.
func (o *Orchestrator) generate(ctx context.Context, prompt string, withReasoning bool, stream llm.StreamCallback) (llm.Reply, error) {
	reply, err := o.generator.Generate(ctx, llm.Request{
		System:        o.cfg.SystemPrompt,
		Prompt:        prompt,
		WithReasoning: withReasoning || o.cfg.WithReasoning,
		Stream:        stream,
	})
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			return llm.Reply{}, fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
		}
		return llm.Reply{}, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	return reply, nil
}

// queryIntent returns the intent hits and the top similarity score.
// Any failure is logged and reported as a miss. Placeholder documents
// score like any other but carry an empty answer, so they never pass the
// non-empty check in Answer.
func (o *Orchestrator) queryIntent(ctx context.Context, query string, k int) ([]index.Result, float64) {
	hits, err := o.searcher.Search(ctx, index.CollectionIntent, query, index.WithTopK(k))
	if err != nil {
		o.logger.Warn("intent space query failed, falling back to knowledge space", "error", err)
		return nil, 0
	}
	if len(hits) == 0 {
		return nil, 0
	}
	return hits, hits[0].Similarity
}

// buildPrompt assembles the generation prompt from the query and retrieved
// context.
func buildPrompt(query string, hits []index.Result) string {
	var b strings.Builder
	if len(hits) > 0 {
		b.WriteString("Context:\n\n")
		for i, hit := range hits {
			fmt.Fprintf(&b, "[%d] %s\n\n", i+1, hit.Document.Content)
		}
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}
