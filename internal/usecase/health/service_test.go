package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakeChecker struct{ err error }

func (f *fakeChecker) HealthCheck(context.Context) error { return f.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&fakePinger{}, &fakeChecker{})

	status := svc.Check(context.Background())
	if !status.Healthy {
		t.Error("expected healthy status")
	}
	if status.Services["database"] != "ok" || status.Services["embeddings"] != "ok" {
		t.Errorf("unexpected services: %v", status.Services)
	}
}

func TestCheck_DatabaseDown(t *testing.T) {
	svc := New(&fakePinger{err: errors.New("connection refused")}, &fakeChecker{})

	status := svc.Check(context.Background())
	if status.Healthy {
		t.Error("expected unhealthy status")
	}
	if status.Services["database"] == "ok" {
		t.Error("database must report the failure")
	}
	if status.Services["embeddings"] != "ok" {
		t.Error("embeddings must still be probed")
	}
}

func TestCheck_EmbedderDown(t *testing.T) {
	svc := New(&fakePinger{}, &fakeChecker{err: errors.New("401 unauthorized")})

	status := svc.Check(context.Background())
	if status.Healthy {
		t.Error("expected unhealthy status")
	}
}

func TestCheck_NilEmbedderSkipped(t *testing.T) {
	svc := New(&fakePinger{}, nil)

	status := svc.Check(context.Background())
	if !status.Healthy {
		t.Error("expected healthy status without embedder probe")
	}
	if _, ok := status.Services["embeddings"]; ok {
		t.Error("embeddings must not be reported when unprobed")
	}
}
