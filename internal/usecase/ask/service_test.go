package ask

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/courtdata/formdex/internal/domain"
	"github.com/courtdata/formdex/internal/usecase/search"
)

type mockGuidance struct {
	entry domain.GuidanceEntry
	err   error
}

func (m *mockGuidance) Match(string) (domain.GuidanceEntry, error) {
	return m.entry, m.err
}

func (m *mockGuidance) Fallback() domain.GuidanceEntry {
	return domain.GuidanceEntry{Topic: "general", Description: "fallback"}
}

type mockSearcher struct {
	results   []domain.SearchResult
	err       error
	lastLimit int
}

func (m *mockSearcher) Search(_ context.Context, p search.Params) ([]domain.SearchResult, error) {
	m.lastLimit = p.Limit
	return m.results, m.err
}

func TestAsk_JoinsGuidanceAndSearch(t *testing.T) {
	guidance := &mockGuidance{entry: domain.GuidanceEntry{
		Topic: "divorce",
		Forms: []domain.GuidedForm{{Code: "FL-100"}},
		Steps: []string{"file the petition"},
	}}
	searcher := &mockSearcher{results: []domain.SearchResult{
		{Form: domain.FormRecord{Code: "FL-180"}, Similarity: 0.82},
	}}
	svc := New(guidance, searcher, 5, zap.NewNop())

	ans, err := svc.Ask(context.Background(), "How do I file for divorce?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Guidance.Topic != "divorce" {
		t.Errorf("expected divorce guidance, got %q", ans.Guidance.Topic)
	}
	if len(ans.RelevantForms) != 1 || ans.RelevantForms[0].Code != "FL-180" {
		t.Errorf("unexpected relevant forms: %+v", ans.RelevantForms)
	}
	if !ans.SearchPerformed {
		t.Error("expected SearchPerformed to be true")
	}
	if searcher.lastLimit != 5 {
		t.Errorf("expected search limit 5, got %d", searcher.lastLimit)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc := New(&mockGuidance{}, &mockSearcher{}, 5, zap.NewNop())

	_, err := svc.Ask(context.Background(), "   ")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAsk_SearchFailureDegradesToGuidance(t *testing.T) {
	guidance := &mockGuidance{entry: domain.GuidanceEntry{Topic: "eviction"}}
	searcher := &mockSearcher{err: domain.ErrSearchUnavailable}
	svc := New(guidance, searcher, 5, zap.NewNop())

	ans, err := svc.Ask(context.Background(), "my landlord is evicting me")
	if err != nil {
		t.Fatalf("expected degraded answer, got error: %v", err)
	}
	if ans.Guidance.Topic != "eviction" {
		t.Errorf("expected eviction guidance, got %q", ans.Guidance.Topic)
	}
	if ans.SearchPerformed {
		t.Error("expected SearchPerformed to be false")
	}
	if len(ans.RelevantForms) != 0 {
		t.Errorf("expected no relevant forms, got %d", len(ans.RelevantForms))
	}
}

func TestAsk_NoGuidanceMatchUsesFallback(t *testing.T) {
	guidance := &mockGuidance{err: domain.ErrNotFound}
	svc := New(guidance, &mockSearcher{}, 5, zap.NewNop())

	ans, err := svc.Ask(context.Background(), "something unclassifiable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Guidance.Topic != "general" {
		t.Errorf("expected fallback entry, got %q", ans.Guidance.Topic)
	}
}

func TestAsk_RelevantFormsNeverNil(t *testing.T) {
	guidance := &mockGuidance{entry: domain.GuidanceEntry{Topic: "traffic"}}
	svc := New(guidance, &mockSearcher{results: nil}, 5, zap.NewNop())

	ans, err := svc.Ask(context.Background(), "traffic ticket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.RelevantForms == nil {
		t.Error("RelevantForms must be non-nil for JSON encoding")
	}
}
