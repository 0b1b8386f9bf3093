// Package search implements the semantic form-search operation.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/courtdata/formdex/internal/domain"
)

// Options bound what a single search may ask for.
type Options struct {
	MaxResults     int
	DefaultResults int
	// Threshold drops results whose similarity falls below it. 0 disables.
	Threshold float64
	// Source restricts matches to one ingestion source. Empty means all.
	Source string
	// Timeout bounds the embedding call plus the store query together.
	Timeout time.Duration
}

// Service handles semantic search over the form store.
type Service struct {
	repo  Repository
	embed Embedder
	opts  Options
}

// New creates a search service.
func New(repo Repository, embed Embedder, opts Options) *Service {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 20
	}
	if opts.DefaultResults <= 0 {
		opts.DefaultResults = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Service{repo: repo, embed: embed, opts: opts}
}

// Params is one search request.
type Params struct {
	Query string
	// Limit 0 means the configured default. Out-of-range values are clamped.
	Limit int
	// Topic filters by catalog topic. Unknown values are ignored.
	Topic string
}

// Search embeds the query and returns the nearest stored forms, ordered by
// non-increasing similarity. It either returns the full ranked sequence or
// an error, never a partial result.
func (s *Service) Search(ctx context.Context, p Params) ([]domain.SearchResult, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, fmt.Errorf("query must not be empty: %w", domain.ErrInvalidArgument)
	}

	limit := p.Limit
	if limit == 0 {
		limit = s.opts.DefaultResults
	}
	if limit < 1 {
		limit = 1
	}
	if limit > s.opts.MaxResults {
		limit = s.opts.MaxResults
	}

	topic := p.Topic
	if topic != "" && !domain.KnownTopic(topic) {
		topic = ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, unavailable("vectorize query", err)
	}

	results, err := s.repo.MatchForms(ctx, embResult.Embedding, limit, topic, s.opts.Source)
	if err != nil {
		return nil, unavailable("match forms", err)
	}

	if s.opts.Threshold > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Similarity >= s.opts.Threshold {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// unavailable maps timeouts and provider failures onto SearchUnavailable so
// callers see one retryable error class for the whole search path.
func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrSearchUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, domain.ErrEmbeddingProviderError) {
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrSearchUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
