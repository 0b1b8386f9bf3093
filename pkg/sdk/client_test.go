package formdex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, opts...)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "custody forms" || req.Limit != 3 {
			t.Errorf("unexpected request body: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Query:      req.Query,
			Forms:      []Form{{Code: "FL-300", Title: "Request for Order", Topic: "child custody and visitation", Similarity: 0.91}},
			TotalFound: 1,
		})
	})

	resp, err := client.Search(context.Background(), SearchRequest{Query: "custody forms", Limit: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.TotalFound != 1 || resp.Forms[0].Code != "FL-300" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAsk(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ask" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["question"] != "How do I file for divorce?" {
			t.Errorf("unexpected question: %q", req["question"])
		}
		_ = json.NewEncoder(w).Encode(Answer{
			Question:        req["question"],
			Guidance:        Guidance{Topic: "divorce"},
			RelevantForms:   []Form{{Code: "FL-100"}},
			SearchPerformed: true,
		})
	})

	ans, err := client.Ask(context.Background(), "How do I file for divorce?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Guidance.Topic != "divorce" || !ans.SearchPerformed {
		t.Errorf("unexpected answer: %+v", ans)
	}
}

func TestAPIKeyHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(Stats{})
	}, WithAPIKey("secret"))

	if _, err := client.Stats(context.Background()); err != nil {
		t.Fatalf("Stats: %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad request", http.StatusBadRequest, `{"code":"invalid_argument","message":"query is required"}`, ErrInvalidArgument},
		{"unauthorized", http.StatusUnauthorized, `{"code":"unauthorized","message":"missing bearer token"}`, ErrUnauthorized},
		{"not found", http.StatusNotFound, `{"code":"job_not_found","message":"crawl job not found"}`, ErrNotFound},
		{"unavailable", http.StatusServiceUnavailable, `{"code":"search_unavailable","message":"search unavailable"}`, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Search(context.Background(), SearchRequest{Query: "x"})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error %v is not *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
		})
	}
}

func TestHealthUnhealthy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthStatus{
			Healthy:  false,
			Services: map[string]string{"database": "down", "embeddings": "ok"},
		})
	})

	status, err := client.Health(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if status.Healthy || status.Services["database"] != "down" {
		t.Errorf("status not populated from 503 body: %+v", status)
	}
}

func TestCrawlRoundTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/crawl":
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(CrawlJob{ID: "job-1", Type: CrawlPopular, Status: "running"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/crawl/job-1":
			_ = json.NewEncoder(w).Encode(CrawlJob{ID: "job-1", Type: CrawlPopular, Status: "completed", FormsStored: 42})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	job, err := client.TriggerCrawl(context.Background(), CrawlPopular)
	if err != nil {
		t.Fatalf("TriggerCrawl: %v", err)
	}
	if job.ID != "job-1" || job.Status != "running" {
		t.Errorf("unexpected job: %+v", job)
	}

	job, err = client.CrawlJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("CrawlJob: %v", err)
	}
	if job.Status != "completed" || job.FormsStored != 42 {
		t.Errorf("unexpected job snapshot: %+v", job)
	}
}

func TestCatalogEnvelopes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sources":
			_, _ = w.Write([]byte(`{"sources":[{"source":"california_courts_comprehensive","form_count":718,"last_seen":"2026-08-01T00:00:00Z"}]}`))
		case "/api/topics":
			_, _ = w.Write([]byte(`{"topics":["divorce","probate"],"total_topics":2}`))
		case "/api/stats":
			_, _ = w.Write([]byte(`{"total_forms":718,"total_topics":26,"sources":1}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	})

	ctx := context.Background()

	sources, err := client.Sources(ctx)
	if err != nil || len(sources) != 1 || sources[0].FormCount != 718 {
		t.Errorf("Sources = %+v, err = %v", sources, err)
	}
	topics, err := client.Topics(ctx)
	if err != nil || len(topics) != 2 {
		t.Errorf("Topics = %+v, err = %v", topics, err)
	}
	stats, err := client.Stats(ctx)
	if err != nil || stats.TotalForms != 718 {
		t.Errorf("Stats = %+v, err = %v", stats, err)
	}
}
