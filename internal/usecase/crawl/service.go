package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/courtdata/formdex/internal/crawler"
	"github.com/courtdata/formdex/internal/domain"
	"github.com/courtdata/formdex/internal/metrics"
)

// Crawl types accepted by Trigger.
const (
	TypeSingle  = "single"  // one pass over the forms index page
	TypeSmart   = "smart"   // index page plus in-catalog links up to max depth
	TypePopular = "popular" // every catalog topic, fanned out over a worker pool
)

// Job statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is a snapshot of one crawl run.
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	TopicsTotal int        `json:"topics_total"`
	TopicsDone  int        `json:"topics_done"`
	FormsStored int        `json:"forms_stored"`
	FormsFailed int        `json:"forms_failed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

type Options struct {
	Source        string
	MaxConcurrent int
	JobTimeout    time.Duration
}

// Service runs crawl jobs in the background and tracks their progress in an
// in-memory registry. Trigger returns immediately; callers poll Job for
// status. The registry is process local and lost on restart.
type Service struct {
	fetcher Fetcher
	embed   Embedder
	store   Store
	opts    Options
	log     *zap.Logger

	mu   sync.Mutex
	jobs map[string]*Job
}

func New(fetcher Fetcher, embed Embedder, store Store, opts Options, log *zap.Logger) *Service {
	if opts.Source == "" {
		opts.Source = "california_courts_comprehensive"
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		fetcher: fetcher,
		embed:   embed,
		store:   store,
		opts:    opts,
		log:     log,
		jobs:    make(map[string]*Job),
	}
}

// Trigger starts a crawl of the given type and returns its job snapshot
// without waiting for completion.
func (s *Service) Trigger(crawlType string) (Job, error) {
	if crawlType == "" {
		crawlType = TypeSingle
	}
	switch crawlType {
	case TypeSingle, TypeSmart, TypePopular:
	default:
		return Job{}, fmt.Errorf("unknown crawl type %q: %w", crawlType, domain.ErrInvalidArgument)
	}

	job := &Job{
		ID:        uuid.NewString(),
		Type:      crawlType,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if crawlType == TypePopular {
		job.TopicsTotal = len(domain.Topics)
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.run(job.ID, crawlType)

	return *job, nil
}

// Job returns a snapshot of a tracked crawl run.
func (s *Service) Job(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("crawl job %q: %w", id, domain.ErrJobNotFound)
	}
	return *job, nil
}

// Jobs returns snapshots of all tracked crawl runs.
func (s *Service) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

func (s *Service) run(jobID, crawlType string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job_id", jobID), zap.String("crawl_type", crawlType))
	log.Info("crawl started")

	var err error
	switch crawlType {
	case TypePopular:
		err = s.crawlTopics(ctx, jobID)
	case TypeSmart:
		err = s.crawlIndex(ctx, jobID, true)
	default:
		err = s.crawlIndex(ctx, jobID, false)
	}

	now := time.Now().UTC()
	s.update(jobID, func(job *Job) {
		job.FinishedAt = &now
		if err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
		} else {
			job.Status = StatusCompleted
		}
	})

	if err != nil {
		log.Error("crawl failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	stored := s.jobs[jobID].FormsStored
	s.mu.Unlock()
	log.Info("crawl completed", zap.Int("forms_stored", stored))
}

// crawlTopics fans the catalog topics out over a bounded worker pool. A topic
// that fails is logged and counted but does not abort the other topics.
func (s *Service) crawlTopics(ctx context.Context, jobID string) error {
	pool, err := ants.NewPool(s.opts.MaxConcurrent)
	if err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, topic := range domain.Topics {
		topic := topic
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			forms, err := s.fetcher.FetchTopic(ctx, topic)
			if err != nil {
				s.log.Warn("topic crawl failed", zap.String("topic", topic), zap.Error(err))
			} else {
				s.ingest(ctx, jobID, forms)
			}
			s.update(jobID, func(job *Job) { job.TopicsDone++ })
		})
		if submitErr != nil {
			wg.Done()
			return fmt.Errorf("submit topic %q: %w", topic, submitErr)
		}
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) crawlIndex(ctx context.Context, jobID string, deep bool) error {
	forms, err := s.fetcher.FetchIndex(ctx, deep)
	if err != nil {
		return err
	}
	s.ingest(ctx, jobID, forms)
	return ctx.Err()
}

// ingest embeds and upserts scraped forms one at a time. Per-form failures
// are counted, not fatal: a partial crawl still improves the index.
func (s *Service) ingest(ctx context.Context, jobID string, forms []crawler.Form) {
	for _, form := range forms {
		if ctx.Err() != nil {
			return
		}
		if err := s.storeForm(ctx, form); err != nil {
			s.log.Warn("form ingest failed",
				zap.String("code", form.Code),
				zap.String("topic", form.Topic),
				zap.Error(err))
			metrics.CrawlFormsTotal.WithLabelValues(form.Topic, "failed").Inc()
			s.update(jobID, func(job *Job) { job.FormsFailed++ })
			continue
		}
		metrics.CrawlFormsTotal.WithLabelValues(form.Topic, "stored").Inc()
		s.update(jobID, func(job *Job) { job.FormsStored++ })
	}
}

func (s *Service) storeForm(ctx context.Context, form crawler.Form) error {
	content := form.Content()
	emb, err := s.embed.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	rec := domain.FormRecord{
		Code:     form.Code,
		Title:    form.Title,
		Topic:    form.Topic,
		URL:      form.URL,
		Content:  content,
		Source:   s.opts.Source,
		Metadata: form.Metadata(),
	}
	if err := s.store.UpsertForm(ctx, rec, emb.Embedding); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func (s *Service) update(jobID string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		fn(job)
	}
}
