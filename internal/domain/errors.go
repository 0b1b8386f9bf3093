package domain

import "errors"

var (
	// ErrInvalidArgument signals a malformed or missing request field.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSearchUnavailable signals that the store or the embedding provider
	// is unreachable or timed out. Safe for the caller to retry.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrNotFound signals a missing resource, including a guidance miss.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrJobNotFound signals an unknown crawl job id.
	ErrJobNotFound = errors.New("job not found")
)
