package health

import (
	"context"
	"time"
)

// Pinger checks the form store connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks the embedding provider.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Status is the per-dependency health report.
type Status struct {
	Healthy  bool              `json:"healthy"`
	Services map[string]string `json:"services"`
}

// Service probes the store and the embedding provider. Either dependency
// being down marks the whole report unhealthy; the readiness endpoint uses
// that to pull the instance out of rotation.
type Service struct {
	store    Pinger
	embedder Checker
	timeout  time.Duration
}

func New(store Pinger, embedder Checker) *Service {
	return &Service{store: store, embedder: embedder, timeout: 3 * time.Second}
}

func (s *Service) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status := Status{Healthy: true, Services: map[string]string{}}

	if err := s.store.Ping(ctx); err != nil {
		status.Healthy = false
		status.Services["database"] = err.Error()
	} else {
		status.Services["database"] = "ok"
	}

	if s.embedder != nil {
		if err := s.embedder.HealthCheck(ctx); err != nil {
			status.Healthy = false
			status.Services["embeddings"] = err.Error()
		} else {
			status.Services["embeddings"] = "ok"
		}
	}

	return status
}
