package culturai

import "github.com/kailas-cloud/culturai/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrGenerationFailed       = domain.ErrGenerationFailed
	ErrCompletionUnavailable  = domain.ErrCompletionUnavailable
	ErrNoEvents               = domain.ErrNoEvents
	ErrProfileRequired        = domain.ErrProfileRequired
	ErrIndexNotPersistent     = domain.ErrIndexNotPersistent
)
