package rag

import "errors"

// Sentinel errors for retrieval operations.
// Check with errors.Is().
var (
	// ErrCapabilityUnavailable indicates a required backend (embedding
	// model, generation model) is not configured. The caller should offer
	// a non-retrieval fallback rather than treating this as a runtime
	// failure.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrRetrievalFailure indicates the knowledge-space vector query
	// failed. No partial answer is returned.
	ErrRetrievalFailure = errors.New("retrieval failure")

	// ErrGenerationFailure indicates the model call failed after retries.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrIndexRebuildFailure indicates a rebuild did not complete. The
	// previous index contents are left intact.
	ErrIndexRebuildFailure = errors.New("index rebuild failure")

	// ErrInvalidParameter indicates a caller-supplied parameter is out of
	// range, such as a non-positive retrieval k.
	ErrInvalidParameter = errors.New("invalid parameter")
)
