package search

import (
	"context"

	"github.com/courtdata/formdex/internal/domain"
)

// Repository defines the storage contract for similarity search.
type Repository interface {
	// MatchForms returns the limit nearest forms by cosine distance,
	// ordered by non-increasing similarity. Empty topic or source means
	// no filter.
	MatchForms(ctx context.Context, vector []float32, limit int, topic, source string) ([]domain.SearchResult, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
