// Package chi exposes the HTTP/JSON API over a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/courtdata/formdex/internal/domain"
	askuc "github.com/courtdata/formdex/internal/usecase/ask"
	crawluc "github.com/courtdata/formdex/internal/usecase/crawl"
	healthuc "github.com/courtdata/formdex/internal/usecase/health"
	searchuc "github.com/courtdata/formdex/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// CatalogReader serves the store-level listings behind the sources, topics,
// and stats endpoints.
type CatalogReader interface {
	ListSources(ctx context.Context) ([]domain.SourceStats, error)
	ListTopics(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (domain.StoreStats, error)
}

// Server holds the use-case services behind the REST endpoints.
type Server struct {
	ask           *askuc.Service
	search        *searchuc.Service
	crawl         *crawluc.Service
	catalog       CatalogReader
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ask *askuc.Service,
	search *searchuc.Service,
	crawl *crawluc.Service,
	catalog CatalogReader,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ask:     ask,
		search:  search,
		crawl:   crawl,
		catalog: catalog,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, "job_not_found"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, "search_unavailable"),
	}
	return s
}

// Routes mounts all REST endpoints on a router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/ask", s.Ask)
	r.Post("/api/search", s.Search)
	r.Post("/api/crawl", s.Crawl)
	r.Get("/api/crawl/{jobID}", s.CrawlJob)
	r.Get("/api/sources", s.Sources)
	r.Get("/api/topics", s.Topics)
	r.Get("/api/stats", s.Stats)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "invalid_argument", "question is required")
		return
	}

	answer, err := s.ask.Ask(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	Topic string `json:"topic"`
}

type searchResponse struct {
	Query      string       `json:"query"`
	Forms      []formResult `json:"forms"`
	TotalFound int          `json:"total_found"`
}

type formResult struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Topic      string  `json:"topic"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_argument", "query is required")
		return
	}

	results, err := s.search.Search(r.Context(), searchuc.Params{
		Query: req.Query,
		Limit: req.Limit,
		Topic: req.Topic,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Query:      req.Query,
		Forms:      formResults(results),
		TotalFound: len(results),
	})
}

type crawlRequest struct {
	Type string `json:"type"`
}

// Crawl handles POST /api/crawl. The crawl runs in the background; the
// response carries the job id to poll.
func (s *Server) Crawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_argument", "invalid request body")
			return
		}
	}

	job, err := s.crawl.Trigger(req.Type)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// CrawlJob handles GET /api/crawl/{jobID}.
func (s *Server) CrawlJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.crawl.Job(chi.URLParam(r, "jobID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type sourceResponse struct {
	Source    string `json:"source"`
	FormCount int64  `json:"form_count"`
	LastSeen  string `json:"last_seen"`
}

// Sources handles GET /api/sources.
func (s *Server) Sources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.catalog.ListSources(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	out := make([]sourceResponse, len(sources))
	for i, src := range sources {
		out[i] = sourceResponse{
			Source:    src.Source,
			FormCount: src.FormCount,
			LastSeen:  src.LastSeen.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": out})
}

// Topics handles GET /api/topics.
func (s *Server) Topics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.catalog.ListTopics(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"topics":       topics,
		"total_topics": len(topics),
	})
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_forms":  stats.TotalForms,
		"total_topics": stats.TotalTopics,
		"sources":      len(stats.Sources),
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := s.health.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func formResults(results []domain.SearchResult) []formResult {
	out := make([]formResult, len(results))
	for i, res := range results {
		out[i] = formResult{
			Code:       res.Form.Code,
			Title:      res.Form.Title,
			Topic:      res.Form.Topic,
			URL:        res.Form.URL,
			Similarity: res.Similarity,
		}
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidArgument,
		domain.ErrSearchUnavailable,
		domain.ErrNotFound,
		domain.ErrJobNotFound,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
