// Package index manages the embedded document collections backing the
// retrieval spaces. A collection is a named set of documents in the
// documents table; knowledge_space holds source material chunks and
// intent_space holds curated question/answer pairs.
//
// Rebuilds never modify a live collection in place: documents are staged
// under a temporary collection name and swapped in inside a single
// transaction, so readers always see either the old index or the new one.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/trispace-io/trispace/internal/log"
	"github.com/trispace-io/trispace/internal/postgres"
)

// Collection names for the two retrieval spaces.
const (
	CollectionKnowledge = "knowledge_space"
	CollectionIntent    = "intent_space"
)

var (
	// ErrEmptyRebuild is returned when a rebuild produced no documents.
	// The live collection is left untouched.
	ErrEmptyRebuild = errors.New("rebuild produced no documents")

	// ErrEmptyEmbedding is returned when the embedder yields no vector.
	ErrEmptyEmbedding = errors.New("empty embedding returned")
)

// Document is an embeddable unit of content in a collection.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	CreateAt time.Time
}

// Result is a search hit with its cosine similarity in [-1,1].
// Typical embedding vectors land in [0,1]; threshold comparisons should
// not assume a non-negative floor.
type Result struct {
	Document   Document
	Similarity float64
}

// Querier defines the document queries the store depends on.
// Interfaces are defined by the consumer so tests can substitute mocks.
type Querier interface {
	UpsertDocument(ctx context.Context, arg postgres.UpsertDocumentParams) error
	SearchDocuments(ctx context.Context, arg postgres.SearchDocumentsParams) ([]postgres.SearchDocumentsRow, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)
	DeleteCollection(ctx context.Context, collection string) (int64, error)
}

// Beginner starts transactions, satisfied by *pgxpool.Pool.
// Only Replace needs it; a nil Beginner disables Replace.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store manages embedded documents for one or more collections.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	pool     Beginner
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. logger may be nil.
func New(querier Querier, pool Beginner, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		pool:     pool,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds a document and upserts it into the collection.
func (s *Store) Add(ctx context.Context, collection string, doc Document) error {
	return s.addTo(ctx, s.queries, collection, doc)
}

// AddBatch adds documents one by one and returns how many succeeded.
// The first failure stops the batch.
func (s *Store) AddBatch(ctx context.Context, collection string, docs []Document) (int, error) {
	for i, doc := range docs {
		if err := s.Add(ctx, collection, doc); err != nil {
			return i, fmt.Errorf("adding document %q: %w", doc.ID, err)
		}
	}
	return len(docs), nil
}

// Search embeds the query and returns the closest documents in the
// collection, most similar first. A timeout bounds both the embedding call
// and the vector search so a slow backend cannot block callers.
func (s *Store) Search(ctx context.Context, collection, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchDocuments(queryCtx, postgres.SearchDocumentsParams{
		Collection:     collection,
		QueryEmbedding: embedding,
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	count, err := s.queries.CountDocuments(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Replace rebuilds a collection from docs without disturbing readers.
// Documents are embedded into a staging collection first; the swap then
// runs in one transaction under an advisory lock keyed on the collection
// name. If docs is empty, Replace returns ErrEmptyRebuild and the live
// collection is left intact.
func (s *Store) Replace(ctx context.Context, collection string, docs []Document) (int, error) {
	if s.pool == nil {
		return 0, fmt.Errorf("store has no transaction support, Replace unavailable")
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("replacing %s: %w", collection, ErrEmptyRebuild)
	}

	staging := fmt.Sprintf("%s.staging.%s", collection, uuid.NewString())

	// Stage outside the transaction; the staging collection is invisible
	// to searches so partial progress is harmless.
	for _, doc := range docs {
		if err := s.addTo(ctx, s.queries, staging, doc); err != nil {
			if _, cleanupErr := s.queries.DeleteCollection(ctx, staging); cleanupErr != nil {
				s.logger.Warn("failed to clean up staging collection",
					"collection", staging, "error", cleanupErr)
			}
			return 0, fmt.Errorf("staging document %q: %w", doc.ID, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning swap transaction: %w", err)
	}
	defer func() {
		// Rollback is a no-op after a successful commit.
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("swap rollback failed", "collection", collection, "error", rbErr)
		}
	}()

	qtx := postgres.New(tx)
	if err := qtx.AcquireCollectionLock(ctx, collection); err != nil {
		return 0, fmt.Errorf("locking collection %s: %w", collection, err)
	}
	if _, err := qtx.DeleteCollection(ctx, collection); err != nil {
		return 0, fmt.Errorf("clearing collection %s: %w", collection, err)
	}
	moved, err := qtx.MoveCollection(ctx, postgres.MoveCollectionParams{From: staging, To: collection})
	if err != nil {
		return 0, fmt.Errorf("promoting staging collection: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing swap: %w", err)
	}

	s.logger.Info("collection rebuilt", "collection", collection, "documents", moved)
	return int(moved), nil
}

// addTo embeds and upserts one document via the given querier.
func (s *Store) addTo(ctx context.Context, q Querier, collection string, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	createdAt := pgtype.Timestamptz{
		Time:  doc.CreateAt,
		Valid: !doc.CreateAt.IsZero(),
	}

	if err := q.UpsertDocument(ctx, postgres.UpsertDocumentParams{
		Collection: collection,
		ID:         doc.ID,
		Content:    doc.Content,
		Metadata:   metadataJSON,
		Embedding:  embedding,
		CreatedAt:  createdAt,
	}); err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document",
		"collection", collection, "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// embed generates a vector for the given text.
func (s *Store) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{
				Content: []*ai.Part{ai.NewTextPart(text)},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	v := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &v, nil
}

// rowsToResults converts database rows to Results.
func (s *Store) rowsToResults(rows []postgres.SearchDocumentsRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}

		var createAt time.Time
		if row.CreatedAt.Valid {
			createAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: metadata,
				CreateAt: createAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}
