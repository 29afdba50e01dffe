package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/log"
)

// IntentSource loads curated question/answer pairs from disk.
type IntentSource interface {
	LoadIntentDir(dir string) ([]index.Document, error)
}

// PositiveFeedback supplies promoted documents from rated interactions.
type PositiveFeedback interface {
	PositiveDocuments(ctx context.Context, minRating int) ([]index.Document, error)
}

// Replacer is the rebuild side of the vector index.
type Replacer interface {
	Replace(ctx context.Context, collection string, docs []index.Document) (int, error)
}

// PromoterConfig configures a Promoter.
type PromoterConfig struct {
	IntentDir string

	// MinRating is the lowest rating that qualifies an interaction for
	// promotion into the intent space.
	MinRating int
}

// Promoter rebuilds the intent space from curated files plus positively
// rated feedback.
type Promoter struct {
	source   IntentSource
	feedback PositiveFeedback
	replacer Replacer
	cfg      PromoterConfig
	logger   log.Logger
}

// NewPromoter creates a Promoter. logger may be nil.
func NewPromoter(source IntentSource, feedback PositiveFeedback, replacer Replacer, cfg PromoterConfig, logger log.Logger) *Promoter {
	if cfg.MinRating <= 0 {
		cfg.MinRating = 1
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Promoter{
		source:   source,
		feedback: feedback,
		replacer: replacer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Rebuild replaces the intent space with the union of curated pairs and
// promoted feedback. An empty union aborts the rebuild and leaves the
// existing index untouched; a missing or empty curated directory alone is
// not an error as long as feedback contributes documents.
func (p *Promoter) Rebuild(ctx context.Context) (int, error) {
	curated, err := p.source.LoadIntentDir(p.cfg.IntentDir)
	if err != nil {
		// A missing curated directory still allows promotion from
		// feedback alone.
		p.logger.Warn("loading curated intent files failed", "dir", p.cfg.IntentDir, "error", err)
		curated = nil
	}

	promoted, err := p.feedback.PositiveDocuments(ctx, p.cfg.MinRating)
	if err != nil {
		return 0, fmt.Errorf("%w: loading promoted feedback: %w", ErrIndexRebuildFailure, err)
	}

	union := make([]index.Document, 0, len(curated)+len(promoted))
	union = append(union, curated...)
	union = append(union, promoted...)
	if len(union) == 0 {
		p.logger.Info("intent rebuild skipped, nothing to index",
			"curated", len(curated), "promoted", len(promoted))
		return 0, fmt.Errorf("%w: %w", ErrIndexRebuildFailure, index.ErrEmptyRebuild)
	}

	count, err := p.replacer.Replace(ctx, index.CollectionIntent, union)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexRebuildFailure, err)
	}

	p.logger.Info("intent space rebuilt",
		"curated", len(curated), "promoted", len(promoted), "indexed", count)
	return count, nil
}

// ShouldAutoRebuild reports whether a just-attached piece of feedback is a
// strong enough editorial signal to trigger an automatic rebuild: a rating
// of 4 or higher together with a non-blank correction. Whitespace-only
// corrections do not count, matching how promotion treats them.
func ShouldAutoRebuild(rating *int, correction string) bool {
	return rating != nil && *rating >= 4 && strings.TrimSpace(correction) != ""
}

// IsEmptyRebuild reports whether err is the abort of a rebuild with no
// qualifying documents, which callers may treat as a no-op rather than a
// failure.
func IsEmptyRebuild(err error) bool {
	return errors.Is(err, index.ErrEmptyRebuild)
}
