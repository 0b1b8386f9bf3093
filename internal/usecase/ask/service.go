package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/courtdata/formdex/internal/domain"
	"github.com/courtdata/formdex/internal/usecase/search"
)

// Answer is the combined response for a free-text legal question: the static
// guidance entry for the detected topic plus semantically similar forms from
// the vector store.
type Answer struct {
	Question        string               `json:"question"`
	Guidance        domain.GuidanceEntry `json:"guidance"`
	RelevantForms   []RelevantForm       `json:"relevant_forms"`
	SearchPerformed bool                 `json:"search_performed"`
}

// RelevantForm is one search hit trimmed to the fields a caller needs to
// locate the form.
type RelevantForm struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Topic      string  `json:"topic"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Service answers questions by running guidance matching and vector search
// concurrently and joining the results. Vector search is best effort: if the
// store or embedder is down the answer degrades to guidance only.
type Service struct {
	guidance Guidance
	searcher Searcher
	limit    int
	log      *zap.Logger
}

func New(guidance Guidance, searcher Searcher, limit int, log *zap.Logger) *Service {
	if limit <= 0 {
		limit = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{guidance: guidance, searcher: searcher, limit: limit, log: log}
}

// Ask resolves a question into an Answer. The two lookups have no ordering
// dependency, so they run in parallel and join before responding.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("question is required: %w", domain.ErrInvalidArgument)
	}

	var (
		entry    domain.GuidanceEntry
		results  []domain.SearchResult
		found    = true
		searched bool
		g, gctx  = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		e, err := s.guidance.Match(question)
		if errors.Is(err, domain.ErrNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		entry = e
		return nil
	})

	g.Go(func() error {
		r, err := s.searcher.Search(gctx, search.Params{Query: question, Limit: s.limit})
		if err != nil {
			s.log.Warn("vector search degraded to guidance only",
				zap.String("question", question),
				zap.Error(err))
			return nil
		}
		results = r
		searched = true
		return nil
	})

	if err := g.Wait(); err != nil {
		return Answer{}, err
	}

	if !found {
		entry = s.guidance.Fallback()
	}
	forms := make([]RelevantForm, len(results))
	for i, res := range results {
		forms[i] = RelevantForm{
			Code:       res.Form.Code,
			Title:      res.Form.Title,
			Topic:      res.Form.Topic,
			URL:        res.Form.URL,
			Similarity: res.Similarity,
		}
	}
	return Answer{
		Question:        question,
		Guidance:        entry,
		RelevantForms:   forms,
		SearchPerformed: searched,
	}, nil
}
