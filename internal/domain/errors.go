package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexUnavailable signals that the vector index has not been built yet.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrIndexCorrupt signals that stored index metadata disagrees with the configured embedder.
	ErrIndexCorrupt = errors.New("vector index corrupt")
	// ErrVectorDimMismatch signals a vector dimension mismatch on insert.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals an embedding provider quota hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrExtractionFailed signals that a source document carries no extractable text.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrNoDocuments signals an indexing run with empty input.
	ErrNoDocuments = errors.New("no documents to index")
	// ErrToolInvocation signals a failed retrieval tool call with no usable context.
	ErrToolInvocation = errors.New("tool invocation failed")
	// ErrUpstreamModel signals a chat model failure after retries were exhausted.
	ErrUpstreamModel = errors.New("upstream model error")
	// ErrConversationLocked signals a concurrent writer on the same thread.
	ErrConversationLocked = errors.New("conversation locked")
	// ErrThreadNotFound signals a missing conversation thread.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrEmptyAnswer signals that the model produced no text for a finished turn.
	ErrEmptyAnswer = errors.New("model returned empty answer")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// DimMismatchError wraps ErrVectorDimMismatch with both dimensionalities.
type DimMismatchError struct {
	Got  int
	Want int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrVectorDimMismatch.Error(), e.Got, e.Want)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimMismatch creates a dimension mismatch error.
func NewDimMismatch(got, want int) error {
	return &DimMismatchError{Got: got, Want: want}
}
