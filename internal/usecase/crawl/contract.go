package crawl

import (
	"context"

	"github.com/courtdata/formdex/internal/crawler"
	"github.com/courtdata/formdex/internal/domain"
)

// Fetcher scrapes catalog pages into parsed form entries.
type Fetcher interface {
	FetchTopic(ctx context.Context, topic string) ([]crawler.Form, error)
	FetchIndex(ctx context.Context, deep bool) ([]crawler.Form, error)
}

// Embedder produces the vector stored with each crawled form.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Store persists crawled forms.
type Store interface {
	UpsertForm(ctx context.Context, rec domain.FormRecord, embedding []float32) error
}
