package domain

import "context"

// Embedder vectorizes text into a fixed-length embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the vector plus provider token usage.
// TotalTokens is 0 on cache hits.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// HealthChecker is implemented by embedders that can verify provider
// availability without consuming tokens.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
