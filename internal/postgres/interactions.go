package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Interaction mirrors one row of the interactions table.
// Rating is NULL until feedback arrives; Correction stays empty unless the
// user supplied a corrected answer.
type Interaction struct {
	ID         pgtype.UUID
	Question   string
	Answer     string
	Sources    []byte
	Rating     pgtype.Int2
	Correction string
	CreatedAt  pgtype.Timestamptz
}

const insertInteraction = `
INSERT INTO interactions (id, question, answer, sources)
VALUES ($1, $2, $3, $4)
`

// InsertInteractionParams holds the arguments for InsertInteraction.
type InsertInteractionParams struct {
	ID       pgtype.UUID
	Question string
	Answer   string
	Sources  []byte
}

// InsertInteraction records a freshly answered question.
func (q *Queries) InsertInteraction(ctx context.Context, arg InsertInteractionParams) error {
	_, err := q.db.Exec(ctx, insertInteraction, arg.ID, arg.Question, arg.Answer, arg.Sources)
	return err
}

const getInteraction = `
SELECT id, question, answer, sources, rating, correction, created_at
FROM interactions
WHERE id = $1
`

// GetInteraction fetches a single interaction by ID.
// Returns pgx.ErrNoRows when the ID is unknown.
func (q *Queries) GetInteraction(ctx context.Context, id pgtype.UUID) (Interaction, error) {
	var i Interaction
	err := q.db.QueryRow(ctx, getInteraction, id).Scan(
		&i.ID, &i.Question, &i.Answer, &i.Sources, &i.Rating, &i.Correction, &i.CreatedAt,
	)
	return i, err
}

const updateInteractionFeedback = `
UPDATE interactions
SET rating = $2, correction = $3
WHERE id = $1
`

// UpdateInteractionFeedbackParams holds the arguments for UpdateInteractionFeedback.
type UpdateInteractionFeedbackParams struct {
	ID         pgtype.UUID
	Rating     pgtype.Int2
	Correction string
}

// UpdateInteractionFeedback overwrites the rating and correction of an
// interaction in place and returns how many rows matched.
func (q *Queries) UpdateInteractionFeedback(ctx context.Context, arg UpdateInteractionFeedbackParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateInteractionFeedback, arg.ID, arg.Rating, arg.Correction)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listInteractions = `
SELECT id, question, answer, sources, rating, correction, created_at
FROM interactions
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

// ListInteractionsParams holds the arguments for ListInteractions.
type ListInteractionsParams struct {
	ResultLimit  int32
	ResultOffset int32
}

// ListInteractions pages through all interactions, newest first.
func (q *Queries) ListInteractions(ctx context.Context, arg ListInteractionsParams) ([]Interaction, error) {
	rows, err := q.db.Query(ctx, listInteractions, arg.ResultLimit, arg.ResultOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

const listUnratedInteractions = `
SELECT id, question, answer, sources, rating, correction, created_at
FROM interactions
WHERE rating IS NULL
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

// ListUnratedInteractions pages through interactions that have not yet
// received any feedback, newest first.
func (q *Queries) ListUnratedInteractions(ctx context.Context, arg ListInteractionsParams) ([]Interaction, error) {
	rows, err := q.db.Query(ctx, listUnratedInteractions, arg.ResultLimit, arg.ResultOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

const listInteractionsByMinRating = `
SELECT id, question, answer, sources, rating, correction, created_at
FROM interactions
WHERE rating >= $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

// ListInteractionsByMinRatingParams holds the arguments for ListInteractionsByMinRating.
type ListInteractionsByMinRatingParams struct {
	MinRating    int16
	ResultLimit  int32
	ResultOffset int32
}

// ListInteractionsByMinRating pages through interactions rated at or above
// MinRating, newest first. Unrated interactions never match.
func (q *Queries) ListInteractionsByMinRating(ctx context.Context, arg ListInteractionsByMinRatingParams) ([]Interaction, error) {
	rows, err := q.db.Query(ctx, listInteractionsByMinRating, arg.MinRating, arg.ResultLimit, arg.ResultOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

const countInteractions = `
SELECT count(*) FROM interactions
`

// CountInteractions returns the total number of recorded interactions.
func (q *Queries) CountInteractions(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countInteractions).Scan(&count)
	return count, err
}

const deleteInteraction = `
DELETE FROM interactions WHERE id = $1
`

// DeleteInteraction removes an interaction and returns how many rows matched.
func (q *Queries) DeleteInteraction(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteInteraction, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const frequentQuestions = `
SELECT question,
       count(*) AS ask_count,
       avg(rating) AS avg_rating,
       count(rating) AS feedback_count,
       max(created_at) AS last_asked
FROM interactions
GROUP BY question
HAVING count(*) >= $1
ORDER BY ask_count DESC, avg_rating DESC NULLS LAST
LIMIT $2
`

// FrequentQuestionsParams holds the arguments for FrequentQuestions.
type FrequentQuestionsParams struct {
	MinCount    int64
	ResultLimit int32
}

// FrequentQuestionsRow is one exact-text question group.
// AvgRating is NULL when no interaction in the group has been rated;
// FeedbackCount counts only rated interactions.
type FrequentQuestionsRow struct {
	Question      string
	AskCount      int64
	AvgRating     pgtype.Float8
	FeedbackCount int64
	LastAsked     pgtype.Timestamptz
}

// FrequentQuestions groups interactions by exact question text and returns
// groups asked at least MinCount times, most asked first.
func (q *Queries) FrequentQuestions(ctx context.Context, arg FrequentQuestionsParams) ([]FrequentQuestionsRow, error) {
	rows, err := q.db.Query(ctx, frequentQuestions, arg.MinCount, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FrequentQuestionsRow
	for rows.Next() {
		var r FrequentQuestionsRow
		if err := rows.Scan(&r.Question, &r.AskCount, &r.AvgRating, &r.FeedbackCount, &r.LastAsked); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const highQualityPairs = `
SELECT id, question, answer, sources, rating, correction, created_at
FROM interactions
WHERE rating >= $1
ORDER BY CASE WHEN correction <> '' THEN 0 ELSE 1 END,
         rating DESC,
         created_at DESC
LIMIT $2
`

// HighQualityPairsParams holds the arguments for HighQualityPairs.
type HighQualityPairsParams struct {
	MinRating   int16
	ResultLimit int32
}

// HighQualityPairs returns well-rated interactions with corrected answers
// first, then by rating and recency.
func (q *Queries) HighQualityPairs(ctx context.Context, arg HighQualityPairsParams) ([]Interaction, error) {
	rows, err := q.db.Query(ctx, highQualityPairs, arg.MinRating, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// scanInteractions drains rows into Interaction values.
func scanInteractions(rows pgx.Rows) ([]Interaction, error) {
	var items []Interaction
	for rows.Next() {
		var i Interaction
		if err := rows.Scan(&i.ID, &i.Question, &i.Answer, &i.Sources, &i.Rating, &i.Correction, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
