package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/trispace-io/trispace/internal/docs"
	"github.com/trispace-io/trispace/internal/index"
)

// mockSpaceStore implements SpaceStore.
type mockSpaceStore struct {
	counts     map[string]int
	countErr   error
	addErr     error
	replaceErr error

	addCalls     map[string][]index.Document
	replaceCalls int
	lastReplaced []index.Document
}

func newMockSpaceStore() *mockSpaceStore {
	return &mockSpaceStore{
		counts:   make(map[string]int),
		addCalls: make(map[string][]index.Document),
	}
}

func (m *mockSpaceStore) Count(ctx context.Context, collection string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.counts[collection], nil
}

func (m *mockSpaceStore) AddBatch(ctx context.Context, collection string, documents []index.Document) (int, error) {
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.addCalls[collection] = documents
	return len(documents), nil
}

func (m *mockSpaceStore) Replace(ctx context.Context, collection string, documents []index.Document) (int, error) {
	m.replaceCalls++
	m.lastReplaced = documents
	if m.replaceErr != nil {
		return 0, m.replaceErr
	}
	return len(documents), nil
}

// mockKnowledgeSource implements KnowledgeSource.
type mockKnowledgeSource struct {
	documents []index.Document
	loadErr   error
}

func (m *mockKnowledgeSource) LoadKnowledgeDir(dir string) ([]index.Document, *docs.LoadStats, error) {
	if m.loadErr != nil {
		return nil, nil, m.loadErr
	}
	return m.documents, &docs.LoadStats{FilesLoaded: len(m.documents)}, nil
}

func TestLifecycle_LoadOrCreate(t *testing.T) {
	t.Run("populates empty collections", func(t *testing.T) {
		store := newMockSpaceStore()
		knowledge := &mockKnowledgeSource{documents: []index.Document{
			{ID: "k1", Content: "knowledge"},
		}}
		intent := &mockIntentSource{documents: []index.Document{
			curatedDoc("i1", "q", "a"),
		}}
		lc := NewLifecycle(store, knowledge, intent, LifecycleConfig{}, nil)

		if err := lc.LoadOrCreate(context.Background()); err != nil {
			t.Fatalf("LoadOrCreate() error: %v", err)
		}

		if len(store.addCalls[index.CollectionKnowledge]) != 1 {
			t.Error("knowledge space not populated")
		}
		if len(store.addCalls[index.CollectionIntent]) != 1 {
			t.Error("intent space not populated")
		}
	})

	t.Run("skips populated collections", func(t *testing.T) {
		store := newMockSpaceStore()
		store.counts[index.CollectionKnowledge] = 10
		store.counts[index.CollectionIntent] = 5
		lc := NewLifecycle(store, &mockKnowledgeSource{}, &mockIntentSource{}, LifecycleConfig{}, nil)

		if err := lc.LoadOrCreate(context.Background()); err != nil {
			t.Fatalf("LoadOrCreate() error: %v", err)
		}
		if len(store.addCalls) != 0 {
			t.Errorf("AddBatch called for populated collections: %v", store.addCalls)
		}
	})

	t.Run("empty sources get placeholders", func(t *testing.T) {
		store := newMockSpaceStore()
		lc := NewLifecycle(store, &mockKnowledgeSource{}, &mockIntentSource{}, LifecycleConfig{}, nil)

		if err := lc.LoadOrCreate(context.Background()); err != nil {
			t.Fatalf("LoadOrCreate() error: %v", err)
		}

		for _, collection := range []string{index.CollectionKnowledge, index.CollectionIntent} {
			added := store.addCalls[collection]
			if len(added) != 1 {
				t.Fatalf("%s: %d documents added, want 1 placeholder", collection, len(added))
			}
			if added[0].Metadata[docs.MetaPlaceholder] != "true" {
				t.Errorf("%s: placeholder flag missing", collection)
			}
		}
	})

	t.Run("missing directories fall back to placeholders", func(t *testing.T) {
		store := newMockSpaceStore()
		knowledge := &mockKnowledgeSource{loadErr: errors.New("no such directory")}
		intent := &mockIntentSource{loadErr: errors.New("no such directory")}
		lc := NewLifecycle(store, knowledge, intent, LifecycleConfig{}, nil)

		if err := lc.LoadOrCreate(context.Background()); err != nil {
			t.Fatalf("LoadOrCreate() error: %v", err)
		}
		if len(store.addCalls[index.CollectionKnowledge]) != 1 {
			t.Error("knowledge placeholder not added")
		}
	})

	t.Run("count failure propagates", func(t *testing.T) {
		store := newMockSpaceStore()
		store.countErr = errors.New("db down")
		lc := NewLifecycle(store, &mockKnowledgeSource{}, &mockIntentSource{}, LifecycleConfig{}, nil)

		if err := lc.LoadOrCreate(context.Background()); err == nil {
			t.Error("LoadOrCreate() expected error")
		}
	})
}

func TestLifecycle_RefreshKnowledge(t *testing.T) {
	t.Run("replaces from directory", func(t *testing.T) {
		store := newMockSpaceStore()
		knowledge := &mockKnowledgeSource{documents: []index.Document{
			{ID: "k1", Content: "one"},
			{ID: "k2", Content: "two"},
		}}
		lc := NewLifecycle(store, knowledge, &mockIntentSource{}, LifecycleConfig{}, nil)

		count, err := lc.RefreshKnowledge(context.Background())
		if err != nil {
			t.Fatalf("RefreshKnowledge() error: %v", err)
		}
		if count != 2 {
			t.Errorf("RefreshKnowledge() = %d, want 2", count)
		}
		if store.replaceCalls != 1 {
			t.Errorf("replace calls = %d, want 1", store.replaceCalls)
		}
	})

	t.Run("empty directory refreshes to placeholder", func(t *testing.T) {
		store := newMockSpaceStore()
		lc := NewLifecycle(store, &mockKnowledgeSource{}, &mockIntentSource{}, LifecycleConfig{}, nil)

		count, err := lc.RefreshKnowledge(context.Background())
		if err != nil {
			t.Fatalf("RefreshKnowledge() error: %v", err)
		}
		if count != 1 {
			t.Errorf("RefreshKnowledge() = %d, want 1 placeholder", count)
		}
		if store.lastReplaced[0].Metadata[docs.MetaPlaceholder] != "true" {
			t.Error("placeholder flag missing")
		}
	})

	t.Run("replace failure is wrapped", func(t *testing.T) {
		store := newMockSpaceStore()
		store.replaceErr = errors.New("swap failed")
		lc := NewLifecycle(store, &mockKnowledgeSource{}, &mockIntentSource{}, LifecycleConfig{}, nil)

		_, err := lc.RefreshKnowledge(context.Background())
		if !errors.Is(err, ErrIndexRebuildFailure) {
			t.Errorf("RefreshKnowledge() error = %v, want ErrIndexRebuildFailure", err)
		}
	})
}
