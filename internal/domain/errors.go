package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals a blank or oversized user query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals an embedding whose length differs from the index dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a chat completion failure while producing prose.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrCompletionUnavailable signals that completions are short-circuited (breaker open).
	ErrCompletionUnavailable = errors.New("completion backend unavailable")
	// ErrNoEvents signals a generation request with an empty event list.
	ErrNoEvents = errors.New("no events to present")
	// ErrProfileRequired signals an enriched pass requested without a profile.
	ErrProfileRequired = errors.New("profile required")
	// ErrIndexNotPersistent signals a save on an index without a storage directory.
	ErrIndexNotPersistent = errors.New("index has no storage directory")
)

// IndexCorruptError reports a persisted index artifact that exists but cannot be decoded.
type IndexCorruptError struct {
	Artifact string
	Err      error
}

func (e *IndexCorruptError) Error() string {
	return fmt.Sprintf("corrupt index artifact %s: %v", e.Artifact, e.Err)
}

func (e *IndexCorruptError) Unwrap() error { return e.Err }
