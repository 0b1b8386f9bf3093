package crawl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/courtdata/formdex/internal/crawler"
	"github.com/courtdata/formdex/internal/domain"
)

type fakeFetcher struct {
	mu          sync.Mutex
	topicForms  map[string][]crawler.Form
	indexForms  []crawler.Form
	topicErr    error
	indexErr    error
	topicsSeen  []string
	deepFetches int
}

func (f *fakeFetcher) FetchTopic(_ context.Context, topic string) ([]crawler.Form, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topicsSeen = append(f.topicsSeen, topic)
	if f.topicErr != nil {
		return nil, f.topicErr
	}
	return f.topicForms[topic], nil
}

func (f *fakeFetcher) FetchIndex(_ context.Context, deep bool) ([]crawler.Form, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if deep {
		f.deepFetches++
	}
	if f.indexErr != nil {
		return nil, f.indexErr
	}
	return f.indexForms, nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	records []domain.FormRecord
	err     error
}

func (f *fakeStore) UpsertForm(_ context.Context, rec domain.FormRecord, _ []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func waitForJob(t *testing.T, svc *Service, id string) Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		job, err := svc.Job(id)
		if err != nil {
			t.Fatalf("job lookup: %v", err)
		}
		if job.Status != StatusRunning {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s did not finish", id)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestTrigger_UnknownType(t *testing.T) {
	svc := New(&fakeFetcher{}, &fakeEmbedder{}, &fakeStore{}, Options{}, zap.NewNop())

	_, err := svc.Trigger("bogus")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestTrigger_ReturnsImmediately(t *testing.T) {
	svc := New(&fakeFetcher{}, &fakeEmbedder{}, &fakeStore{}, Options{}, zap.NewNop())

	job, err := svc.Trigger("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID == "" {
		t.Error("expected a job id")
	}
	if job.Type != TypeSingle {
		t.Errorf("empty type must default to single, got %q", job.Type)
	}
	waitForJob(t, svc, job.ID)
}

func TestTrigger_SingleStoresForms(t *testing.T) {
	fetcher := &fakeFetcher{indexForms: []crawler.Form{
		{Code: "FL-100", Title: "Petition", Topic: "divorce"},
		{Code: "SC-100", Title: "Claim", Topic: "small claims"},
	}}
	store := &fakeStore{}
	svc := New(fetcher, &fakeEmbedder{}, store, Options{Source: "test_source"}, zap.NewNop())

	job, err := svc.Trigger(TypeSingle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done := waitForJob(t, svc, job.ID)

	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.Error)
	}
	if done.FormsStored != 2 {
		t.Errorf("expected 2 forms stored, got %d", done.FormsStored)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(store.records))
	}
	for _, rec := range store.records {
		if rec.Source != "test_source" {
			t.Errorf("record %s: expected source test_source, got %q", rec.Code, rec.Source)
		}
		if rec.Content == "" {
			t.Errorf("record %s: content must not be empty", rec.Code)
		}
	}
}

func TestTrigger_PopularCoversAllTopics(t *testing.T) {
	fetcher := &fakeFetcher{topicForms: map[string][]crawler.Form{
		"divorce": {{Code: "FL-100", Topic: "divorce"}},
	}}
	svc := New(fetcher, &fakeEmbedder{}, &fakeStore{}, Options{MaxConcurrent: 4}, zap.NewNop())

	job, err := svc.Trigger(TypePopular)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.TopicsTotal != len(domain.Topics) {
		t.Errorf("expected %d topics, got %d", len(domain.Topics), job.TopicsTotal)
	}
	done := waitForJob(t, svc, job.ID)

	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.Error)
	}
	if done.TopicsDone != len(domain.Topics) {
		t.Errorf("expected all topics done, got %d", done.TopicsDone)
	}
	if done.FormsStored != 1 {
		t.Errorf("expected 1 form stored, got %d", done.FormsStored)
	}

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	seen := make(map[string]bool, len(fetcher.topicsSeen))
	for _, topic := range fetcher.topicsSeen {
		seen[topic] = true
	}
	for _, topic := range domain.Topics {
		if !seen[topic] {
			t.Errorf("topic %q was never fetched", topic)
		}
	}
}

func TestTrigger_SmartUsesDeepFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := New(fetcher, &fakeEmbedder{}, &fakeStore{}, Options{}, zap.NewNop())

	job, err := svc.Trigger(TypeSmart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForJob(t, svc, job.ID)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if fetcher.deepFetches != 1 {
		t.Errorf("expected 1 deep fetch, got %d", fetcher.deepFetches)
	}
}

func TestTrigger_FetchFailureFailsJob(t *testing.T) {
	fetcher := &fakeFetcher{indexErr: errors.New("catalog unreachable")}
	svc := New(fetcher, &fakeEmbedder{}, &fakeStore{}, Options{}, zap.NewNop())

	job, err := svc.Trigger(TypeSingle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done := waitForJob(t, svc, job.ID)

	if done.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if done.Error == "" {
		t.Error("expected error message on failed job")
	}
}

func TestTrigger_EmbedFailureCountsForm(t *testing.T) {
	fetcher := &fakeFetcher{indexForms: []crawler.Form{{Code: "FL-100", Topic: "divorce"}}}
	svc := New(fetcher, &fakeEmbedder{err: domain.ErrEmbeddingProviderError}, &fakeStore{}, Options{}, zap.NewNop())

	job, err := svc.Trigger(TypeSingle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done := waitForJob(t, svc, job.ID)

	if done.Status != StatusCompleted {
		t.Fatalf("per-form failures must not fail the job, got %s", done.Status)
	}
	if done.FormsFailed != 1 || done.FormsStored != 0 {
		t.Errorf("expected 1 failed / 0 stored, got %d / %d", done.FormsFailed, done.FormsStored)
	}
}

func TestJob_NotFound(t *testing.T) {
	svc := New(&fakeFetcher{}, &fakeEmbedder{}, &fakeStore{}, Options{}, zap.NewNop())

	_, err := svc.Job("no-such-job")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
