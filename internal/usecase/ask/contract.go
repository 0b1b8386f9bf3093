package ask

import (
	"context"

	"github.com/courtdata/formdex/internal/domain"
	"github.com/courtdata/formdex/internal/usecase/search"
)

// Guidance matches a question against the static guidance table.
type Guidance interface {
	Match(question string) (domain.GuidanceEntry, error)
	Fallback() domain.GuidanceEntry
}

// Searcher runs semantic retrieval over the form store.
type Searcher interface {
	Search(ctx context.Context, p search.Params) ([]domain.SearchResult, error)
}
