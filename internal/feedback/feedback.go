// Package feedback persists answered questions and the ratings and
// corrections users attach to them afterwards. Positively rated
// interactions feed back into the intent space during promotion.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/trispace-io/trispace/internal/docs"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/log"
	"github.com/trispace-io/trispace/internal/postgres"
)

// Interaction is one answered question with any feedback attached to it.
// Rating is nil until the user rates the answer.
type Interaction struct {
	ID         uuid.UUID
	Question   string
	Answer     string
	Sources    []string
	Rating     *int
	Correction string
	CreatedAt  time.Time
}

// QuestionGroup aggregates interactions sharing the exact same question
// text. Grouping is by exact string equality, so wording variants stay
// separate. AvgRating is nil when none of the group has been rated.
type QuestionGroup struct {
	Question      string
	AskCount      int64
	AvgRating     *float64
	FeedbackCount int64
	LastAsked     time.Time
}

// Querier defines the interaction queries the log depends on.
// Interfaces are defined by the consumer so tests can substitute mocks.
type Querier interface {
	InsertInteraction(ctx context.Context, arg postgres.InsertInteractionParams) error
	GetInteraction(ctx context.Context, id pgtype.UUID) (postgres.Interaction, error)
	UpdateInteractionFeedback(ctx context.Context, arg postgres.UpdateInteractionFeedbackParams) (int64, error)
	ListInteractions(ctx context.Context, arg postgres.ListInteractionsParams) ([]postgres.Interaction, error)
	ListUnratedInteractions(ctx context.Context, arg postgres.ListInteractionsParams) ([]postgres.Interaction, error)
	ListInteractionsByMinRating(ctx context.Context, arg postgres.ListInteractionsByMinRatingParams) ([]postgres.Interaction, error)
	CountInteractions(ctx context.Context) (int64, error)
	DeleteInteraction(ctx context.Context, id pgtype.UUID) (int64, error)
	FrequentQuestions(ctx context.Context, arg postgres.FrequentQuestionsParams) ([]postgres.FrequentQuestionsRow, error)
	HighQualityPairs(ctx context.Context, arg postgres.HighQualityPairsParams) ([]postgres.Interaction, error)
}

// Log records interactions and serves feedback queries.
// It is safe for concurrent use by multiple goroutines.
type Log struct {
	queries Querier
	logger  log.Logger
}

// New creates a Log. logger may be nil.
func New(querier Querier, logger log.Logger) *Log {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Log{queries: querier, logger: logger}
}

// Record stores a freshly answered question and returns its ID.
func (l *Log) Record(ctx context.Context, question, answer string, sources []string) (uuid.UUID, error) {
	if strings.TrimSpace(question) == "" {
		return uuid.Nil, ErrEmptyQuestion
	}

	id := uuid.New()
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling sources: %w", err)
	}

	if err := l.queries.InsertInteraction(ctx, postgres.InsertInteractionParams{
		ID:       pgUUID(id),
		Question: question,
		Answer:   answer,
		Sources:  sourcesJSON,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("recording interaction: %w", err)
	}

	l.logger.Debug("interaction recorded", "id", id, "question_length", len(question))
	return id, nil
}

// Attach updates an interaction's rating and correction in place.
// rating may be nil to leave the interaction unrated while attaching a
// correction. Repeated calls overwrite earlier feedback.
func (l *Log) Attach(ctx context.Context, id uuid.UUID, rating *int, correction string) error {
	if rating == nil && strings.TrimSpace(correction) == "" {
		return ErrEmptyFeedback
	}
	if rating != nil && (*rating < MinRating || *rating > MaxRating) {
		return fmt.Errorf("%w: %d (must be in [%d,%d])", ErrInvalidRating, *rating, MinRating, MaxRating)
	}

	var pgRating pgtype.Int2
	if rating != nil {
		pgRating = pgtype.Int2{Int16: int16(*rating), Valid: true}
	}

	affected, err := l.queries.UpdateInteractionFeedback(ctx, postgres.UpdateInteractionFeedbackParams{
		ID:         pgUUID(id),
		Rating:     pgRating,
		Correction: correction,
	})
	if err != nil {
		return fmt.Errorf("attaching feedback: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("interaction %s: %w", id, ErrInteractionNotFound)
	}

	l.logger.Debug("feedback attached", "id", id, "rated", rating != nil, "corrected", correction != "")
	return nil
}

// Get fetches one interaction by ID.
func (l *Log) Get(ctx context.Context, id uuid.UUID) (Interaction, error) {
	row, err := l.queries.GetInteraction(ctx, pgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Interaction{}, fmt.Errorf("interaction %s: %w", id, ErrInteractionNotFound)
		}
		return Interaction{}, fmt.Errorf("getting interaction: %w", err)
	}
	return l.rowToInteraction(row), nil
}

// ListFilter narrows List results.
// When Unrated is set only interactions without a rating are returned;
// otherwise MinRating (if non-nil) keeps interactions rated at or above it.
type ListFilter struct {
	Unrated   bool
	MinRating *int
	Limit     int32
	Offset    int32
}

// List pages through interactions, newest first.
func (l *Log) List(ctx context.Context, filter ListFilter) ([]Interaction, error) {
	limit := normalizeLimit(filter.Limit)

	var (
		rows []postgres.Interaction
		err  error
	)
	switch {
	case filter.Unrated:
		rows, err = l.queries.ListUnratedInteractions(ctx, postgres.ListInteractionsParams{
			ResultLimit:  limit,
			ResultOffset: filter.Offset,
		})
	case filter.MinRating != nil:
		rows, err = l.queries.ListInteractionsByMinRating(ctx, postgres.ListInteractionsByMinRatingParams{
			MinRating:    int16(*filter.MinRating),
			ResultLimit:  limit,
			ResultOffset: filter.Offset,
		})
	default:
		rows, err = l.queries.ListInteractions(ctx, postgres.ListInteractionsParams{
			ResultLimit:  limit,
			ResultOffset: filter.Offset,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}

	interactions := make([]Interaction, 0, len(rows))
	for _, row := range rows {
		interactions = append(interactions, l.rowToInteraction(row))
	}
	return interactions, nil
}

// Count returns the total number of recorded interactions.
func (l *Log) Count(ctx context.Context) (int64, error) {
	count, err := l.queries.CountInteractions(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting interactions: %w", err)
	}
	return count, nil
}

// Delete removes one interaction.
func (l *Log) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := l.queries.DeleteInteraction(ctx, pgUUID(id))
	if err != nil {
		return fmt.Errorf("deleting interaction: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("interaction %s: %w", id, ErrInteractionNotFound)
	}
	return nil
}

// FrequentQuestions groups interactions by exact question text and returns
// groups asked at least minCount times, most asked first. Questions that
// differ in wording are separate groups even when semantically identical.
func (l *Log) FrequentQuestions(ctx context.Context, minCount int64, limit int32) ([]QuestionGroup, error) {
	if minCount < 1 {
		minCount = 1
	}
	rows, err := l.queries.FrequentQuestions(ctx, postgres.FrequentQuestionsParams{
		MinCount:    minCount,
		ResultLimit: normalizeLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("grouping frequent questions: %w", err)
	}

	groups := make([]QuestionGroup, 0, len(rows))
	for _, row := range rows {
		group := QuestionGroup{
			Question:      row.Question,
			AskCount:      row.AskCount,
			FeedbackCount: row.FeedbackCount,
		}
		if row.AvgRating.Valid {
			avg := row.AvgRating.Float64
			group.AvgRating = &avg
		}
		if row.LastAsked.Valid {
			group.LastAsked = row.LastAsked.Time
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// HighQualityPairs returns interactions rated at or above minRating,
// corrected answers first, then by rating and recency.
func (l *Log) HighQualityPairs(ctx context.Context, minRating int, limit int32) ([]Interaction, error) {
	rows, err := l.queries.HighQualityPairs(ctx, postgres.HighQualityPairsParams{
		MinRating:   int16(minRating),
		ResultLimit: normalizeLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing high quality pairs: %w", err)
	}

	interactions := make([]Interaction, 0, len(rows))
	for _, row := range rows {
		interactions = append(interactions, l.rowToInteraction(row))
	}
	return interactions, nil
}

// PositiveDocuments converts interactions rated at or above minRating into
// intent-space documents. The correction replaces the original answer when
// present; pairs whose effective answer is empty are skipped.
func (l *Log) PositiveDocuments(ctx context.Context, minRating int) ([]index.Document, error) {
	rows, err := l.queries.ListInteractionsByMinRating(ctx, postgres.ListInteractionsByMinRatingParams{
		MinRating:    int16(minRating),
		ResultLimit:  MaxListLimit,
		ResultOffset: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("listing positive interactions: %w", err)
	}

	documents := make([]index.Document, 0, len(rows))
	for _, row := range rows {
		interaction := l.rowToInteraction(row)

		answer := interaction.Answer
		if strings.TrimSpace(interaction.Correction) != "" {
			answer = interaction.Correction
		}
		if strings.TrimSpace(answer) == "" {
			continue
		}

		documents = append(documents, index.Document{
			ID:      "feedback_" + interaction.ID.String(),
			Content: interaction.Question,
			Metadata: map[string]string{
				docs.MetaAnswer:     answer,
				docs.MetaSourceType: docs.SourceTypeFeedback,
			},
			CreateAt: interaction.CreatedAt,
		})
	}
	return documents, nil
}

// rowToInteraction converts a database row to the domain type.
func (l *Log) rowToInteraction(row postgres.Interaction) Interaction {
	interaction := Interaction{
		Question:   row.Question,
		Answer:     row.Answer,
		Correction: row.Correction,
	}

	if row.ID.Valid {
		interaction.ID = uuid.UUID(row.ID.Bytes)
	}
	if row.Rating.Valid {
		rating := int(row.Rating.Int16)
		interaction.Rating = &rating
	}
	if row.CreatedAt.Valid {
		interaction.CreatedAt = row.CreatedAt.Time
	}
	if len(row.Sources) > 0 {
		if err := json.Unmarshal(row.Sources, &interaction.Sources); err != nil {
			l.logger.Warn("failed to parse interaction sources", "id", interaction.ID, "error", err)
		}
	}
	return interaction
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func normalizeLimit(limit int32) int32 {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
