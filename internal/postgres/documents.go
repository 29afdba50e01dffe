package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

const upsertDocument = `
INSERT INTO documents (collection, id, content, metadata, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
ON CONFLICT (collection, id) DO UPDATE SET
    content = EXCLUDED.content,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding
`

// UpsertDocumentParams holds the arguments for UpsertDocument.
type UpsertDocumentParams struct {
	Collection string
	ID         string
	Content    string
	Metadata   []byte
	Embedding  *pgvector.Vector
	CreatedAt  pgtype.Timestamptz
}

// UpsertDocument inserts a document or replaces its content, metadata and
// embedding if the (collection, id) pair already exists.
func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertDocument,
		arg.Collection,
		arg.ID,
		arg.Content,
		arg.Metadata,
		arg.Embedding,
		arg.CreatedAt,
	)
	return err
}

const searchDocuments = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $2) AS similarity
FROM documents
WHERE collection = $1
ORDER BY embedding <=> $2
LIMIT $3
`

// SearchDocumentsParams holds the arguments for SearchDocuments.
type SearchDocumentsParams struct {
	Collection     string
	QueryEmbedding *pgvector.Vector
	ResultLimit    int32
}

// SearchDocumentsRow is one vector search hit.
// Similarity is cosine similarity in [-1,1] derived from pgvector's
// cosine distance operator.
type SearchDocumentsRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float64
}

// SearchDocuments returns the closest documents in a collection by cosine
// distance, nearest first.
func (q *Queries) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	rows, err := q.db.Query(ctx, searchDocuments, arg.Collection, arg.QueryEmbedding, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SearchDocumentsRow
	for rows.Next() {
		var r SearchDocumentsRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const countDocuments = `
SELECT count(*) FROM documents WHERE collection = $1
`

// CountDocuments returns the number of documents in a collection.
func (q *Queries) CountDocuments(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countDocuments, collection).Scan(&count)
	return count, err
}

const deleteCollection = `
DELETE FROM documents WHERE collection = $1
`

// DeleteCollection removes every document in a collection and returns how
// many rows were deleted.
func (q *Queries) DeleteCollection(ctx context.Context, collection string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCollection, collection)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const moveCollection = `
UPDATE documents SET collection = $2 WHERE collection = $1
`

// MoveCollectionParams holds the arguments for MoveCollection.
type MoveCollectionParams struct {
	From string
	To   string
}

// MoveCollection renames every document in From to To and returns how many
// rows moved. Callers swapping a staged collection into place must run this
// inside a transaction together with DeleteCollection.
func (q *Queries) MoveCollection(ctx context.Context, arg MoveCollectionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, moveCollection, arg.From, arg.To)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const acquireCollectionLock = `
SELECT pg_advisory_xact_lock(hashtext($1))
`

// AcquireCollectionLock takes a transaction-scoped advisory lock keyed on
// the collection name. The lock is released automatically at commit or
// rollback; concurrent rebuilds of the same collection serialize on it.
func (q *Queries) AcquireCollectionLock(ctx context.Context, collection string) error {
	if _, ok := q.db.(pgx.Tx); !ok {
		return fmt.Errorf("advisory lock requires a transaction, use WithTx")
	}
	_, err := q.db.Exec(ctx, acquireCollectionLock, collection)
	return err
}
