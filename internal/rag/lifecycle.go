package rag

import (
	"context"
	"fmt"

	"github.com/trispace-io/trispace/internal/docs"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/log"
)

// SpaceStore is the index surface the lifecycle manager drives.
type SpaceStore interface {
	Count(ctx context.Context, collection string) (int, error)
	AddBatch(ctx context.Context, collection string, docs []index.Document) (int, error)
	Replace(ctx context.Context, collection string, docs []index.Document) (int, error)
}

// KnowledgeSource loads free-form documents from disk.
type KnowledgeSource interface {
	LoadKnowledgeDir(dir string) ([]index.Document, *docs.LoadStats, error)
}

// LifecycleConfig configures a Lifecycle.
type LifecycleConfig struct {
	KnowledgeDir string
	IntentDir    string
}

// Lifecycle brings the two spaces up at startup and serves manual
// refreshes. Loading is idempotent: a collection that already has content
// is left alone, so restarts never re-embed.
type Lifecycle struct {
	store     SpaceStore
	knowledge KnowledgeSource
	intent    IntentSource
	cfg       LifecycleConfig
	logger    log.Logger
}

// NewLifecycle creates a Lifecycle. logger may be nil.
func NewLifecycle(store SpaceStore, knowledge KnowledgeSource, intent IntentSource, cfg LifecycleConfig, logger log.Logger) *Lifecycle {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Lifecycle{
		store:     store,
		knowledge: knowledge,
		intent:    intent,
		cfg:       cfg,
		logger:    logger,
	}
}

// LoadOrCreate ensures both spaces exist and are non-empty. Populated
// collections are loaded as-is; empty ones are built from their source
// directory, falling back to a single placeholder document when the
// directory is missing or yields nothing, so downstream queries never see
// a literally empty collection.
func (lc *Lifecycle) LoadOrCreate(ctx context.Context) error {
	if err := lc.ensure(ctx, index.CollectionKnowledge, lc.loadKnowledge); err != nil {
		return err
	}
	return lc.ensure(ctx, index.CollectionIntent, lc.loadIntent)
}

// RefreshKnowledge re-reads the knowledge directory from scratch and
// replaces the collection. Unlike intent promotion there is no feedback
// union; an empty directory results in a placeholder-only collection.
func (lc *Lifecycle) RefreshKnowledge(ctx context.Context) (int, error) {
	documents := lc.loadKnowledge()
	count, err := lc.store.Replace(ctx, index.CollectionKnowledge, documents)
	if err != nil {
		return 0, fmt.Errorf("%w: refreshing knowledge space: %w", ErrIndexRebuildFailure, err)
	}
	return count, nil
}

// ensure populates collection from load when it is currently empty.
func (lc *Lifecycle) ensure(ctx context.Context, collection string, load func() []index.Document) error {
	count, err := lc.store.Count(ctx, collection)
	if err != nil {
		return fmt.Errorf("checking %s: %w", collection, err)
	}
	if count > 0 {
		lc.logger.Debug("collection already populated", "collection", collection, "documents", count)
		return nil
	}

	documents := load()
	added, err := lc.store.AddBatch(ctx, collection, documents)
	if err != nil {
		return fmt.Errorf("populating %s: %w", collection, err)
	}
	lc.logger.Info("collection created", "collection", collection, "documents", added)
	return nil
}

// loadKnowledge reads the knowledge directory, substituting a placeholder
// when it is missing or empty.
func (lc *Lifecycle) loadKnowledge() []index.Document {
	documents, _, err := lc.knowledge.LoadKnowledgeDir(lc.cfg.KnowledgeDir)
	if err != nil {
		lc.logger.Warn("knowledge directory unavailable, using placeholder",
			"dir", lc.cfg.KnowledgeDir, "error", err)
	}
	if len(documents) == 0 {
		return []index.Document{docs.PlaceholderDocument(index.CollectionKnowledge)}
	}
	return documents
}

// loadIntent reads the curated intent directory, substituting a
// placeholder when it is missing or empty.
func (lc *Lifecycle) loadIntent() []index.Document {
	documents, err := lc.intent.LoadIntentDir(lc.cfg.IntentDir)
	if err != nil {
		lc.logger.Warn("intent directory unavailable, using placeholder",
			"dir", lc.cfg.IntentDir, "error", err)
	}
	if len(documents) == 0 {
		return []index.Document{docs.PlaceholderDocument(index.CollectionIntent)}
	}
	return documents
}
