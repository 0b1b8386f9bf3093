package forms

import (
	"errors"
	"testing"

	"github.com/courtdata/formdex/internal/domain"
)

func TestNullIfEmpty(t *testing.T) {
	if got := nullIfEmpty(""); got != nil {
		t.Errorf("expected nil for empty string, got %v", got)
	}
	if got := nullIfEmpty("divorce"); got == nil || *got != "divorce" {
		t.Errorf("expected pointer to %q, got %v", "divorce", got)
	}
}

func TestStoreErr_WrapsSearchUnavailable(t *testing.T) {
	err := storeErr("match forms", errors.New("connection refused"))

	if !errors.Is(err, domain.ErrSearchUnavailable) {
		t.Fatalf("expected ErrSearchUnavailable, got %v", err)
	}
}
