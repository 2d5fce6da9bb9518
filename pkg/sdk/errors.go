package searchbridge

import (
	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/payload"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrUnknownRecordType      = domain.ErrUnknownRecordType
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrEngineUnavailable      = domain.ErrEngineUnavailable
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrUnknownScope           = scope.ErrUnknownScope
	ErrInvalidCriteria        = criteria.ErrInvalidCriteria
	ErrInvalidFilter          = filter.ErrInvalidFilter
	ErrInvalidPath            = payload.ErrInvalidPath
)
