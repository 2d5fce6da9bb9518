package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnknownRecordType signals a search against an unregistered record type.
	ErrUnknownRecordType = errors.New("unknown record type")
	// ErrInvalidRequest signals unusable search input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEngineUnavailable signals a failing search engine.
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrStoreUnavailable signals a failing record store.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted query embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
)
