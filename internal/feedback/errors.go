package feedback

import "errors"

// Rating bounds and defaults for feedback operations.
const (
	// MinRating is the lowest accepted rating.
	MinRating = 0

	// MaxRating is the highest accepted rating.
	MaxRating = 5

	// DefaultListLimit is applied when a caller asks for zero results.
	DefaultListLimit int32 = 50

	// MaxListLimit caps a single page of interactions.
	MaxListLimit int32 = 1000
)

// Sentinel errors for feedback operations.
// Check with errors.Is().
var (
	// ErrInteractionNotFound indicates the interaction ID does not exist.
	ErrInteractionNotFound = errors.New("interaction not found")

	// ErrInvalidRating indicates a rating outside [MinRating, MaxRating].
	ErrInvalidRating = errors.New("invalid rating")

	// ErrEmptyQuestion indicates an interaction with no question text.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrEmptyFeedback indicates feedback carrying neither a rating nor
	// a correction.
	ErrEmptyFeedback = errors.New("empty feedback")
)
