package guidance

import (
	"errors"
	"testing"

	"github.com/courtdata/formdex/internal/domain"
)

func mustNew(t *testing.T) *Service {
	t.Helper()
	svc, err := New()
	if err != nil {
		t.Fatalf("loading guidance table: %v", err)
	}
	return svc
}

func TestNew_TableLoads(t *testing.T) {
	svc := mustNew(t)
	if len(svc.Entries()) < 20 {
		t.Fatalf("expected full topic table, got %d entries", len(svc.Entries()))
	}
	for _, e := range svc.Entries() {
		if e.Description == "" {
			t.Errorf("entry %q has no description", e.Topic)
		}
		if len(e.Forms) == 0 && len(e.Steps) == 0 {
			t.Errorf("entry %q has neither forms nor steps", e.Topic)
		}
	}
	if svc.Fallback().Description == "" {
		t.Error("fallback entry has no description")
	}
}

func TestMatch_TopicQuestions(t *testing.T) {
	svc := mustNew(t)

	tests := []struct {
		question string
		topic    string
	}{
		{"How do I file for divorce in California?", "divorce"},
		{"I want to adopt my stepchild", "adoption"},
		{"Who gets custody of the kids?", "child custody and visitation"},
		{"How is child support calculated?", "child support"},
		{"I need a restraining order against my ex", "domestic violence"},
		{"My father died, how do I handle his estate?", "probate"},
		{"Someone owes me money, can I sue in small claims?", "small claims"},
		{"My landlord is trying to evict me over rent", "eviction"},
		{"How do I get excused from jury duty?", "jury service"},
		{"Can I appeal the judge's decision?", "appeals"},
		{"How do I set up a conservatorship for my mother?", "conservatorship"},
		{"How do I change my gender marker on my birth certificate?", "gender change"},
		{"How do I establish paternity?", "parentage"},
		{"I think my elderly neighbor is being abused", "elder abuse"},
		{"How do I serve a subpoena?", "discovery and subpoenas"},
		{"How do I garnish wages to collect a judgment?", "enforcement of judgment"},
		{"Can I appear at my hearing over zoom?", "remote appearance"},
		{"How do I expunge my criminal record?", "cleaning criminal record"},
		{"I need an interpreter for my hearing", "language access"},
		{"How do I file proof of service?", "proof of service"},
		{"What happens in juvenile court?", "juvenile"},
		{"How do I file a civil lawsuit?", "civil"},
		{"I cannot afford the filing fees, is there a fee waiver?", "fee waivers"},
		{"How do I become my nephew's legal guardian?", "guardianship"},
		{"How do I legally change my name?", "name change"},
		{"How do I fight a traffic ticket?", "traffic"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			entry, err := svc.Match(tt.question)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if entry.Topic != tt.topic {
				t.Errorf("question %q matched %q, want %q", tt.question, entry.Topic, tt.topic)
			}
		})
	}
}

func TestMatch_DivorceHasFormsAndSteps(t *testing.T) {
	svc := mustNew(t)

	entry, err := svc.Match("How do I file for divorce in California?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entry.Forms) == 0 {
		t.Error("expected non-empty forms")
	}
	if len(entry.Steps) == 0 {
		t.Error("expected non-empty steps")
	}
}

func TestMatch_NoKeywordHit(t *testing.T) {
	svc := mustNew(t)

	_, err := svc.Match("asdkjaskjd nonsense")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMatch_EmptyQuestion(t *testing.T) {
	svc := mustNew(t)

	for _, q := range []string{"", "   ", "?!?"} {
		_, err := svc.Match(q)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("question %q: expected ErrInvalidArgument, got %v", q, err)
		}
	}
}

func TestMatch_HighestScoreWins(t *testing.T) {
	svc := mustNew(t)

	// "abuse" alone hits both domestic violence and elder abuse; adding
	// "elder" and "elderly" tips the score toward the elder abuse entry.
	entry, err := svc.Match("elder abuse of my elderly uncle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Topic != "elder abuse" {
		t.Errorf("expected elder abuse, got %q", entry.Topic)
	}
}

func TestMatch_KeywordsNeedWordBoundaries(t *testing.T) {
	svc := mustNew(t)

	// "renter" must not match the keyword "rent".
	_, err := svc.Match("renter renovations")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for substring-only hit, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"How do I file?", "how do i file"},
		{"  FL-180   form ", "fl 180 form"},
		{"DIVORCE!!!", "divorce"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
