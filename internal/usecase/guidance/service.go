package guidance

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/courtdata/formdex/internal/domain"
)

//go:embed guidance.yaml
var guidanceYAML []byte

type table struct {
	Entries  []domain.GuidanceEntry `yaml:"entries"`
	Fallback domain.GuidanceEntry   `yaml:"fallback"`
}

// Service matches free-text questions against a static table of hand-authored
// guidance entries. It is a keyword classifier, not a ranking model: each
// entry is scored by how many of its keywords appear in the question, the
// highest score wins, and a zero score across the board is a miss.
type Service struct {
	entries  []domain.GuidanceEntry
	fallback domain.GuidanceEntry
}

// New loads the embedded guidance table. The table is immutable after load.
func New() (*Service, error) {
	var t table
	if err := yaml.Unmarshal(guidanceYAML, &t); err != nil {
		return nil, fmt.Errorf("parse guidance table: %w", err)
	}
	if len(t.Entries) == 0 {
		return nil, fmt.Errorf("guidance table is empty")
	}
	for _, e := range t.Entries {
		if e.Topic == "" || len(e.Keywords) == 0 {
			return nil, fmt.Errorf("guidance entry %q: topic and keywords are required", e.Topic)
		}
	}
	return &Service{entries: t.Entries, fallback: t.Fallback}, nil
}

// Match returns the guidance entry whose keywords best cover the question.
// Ties go to the entry listed first in the table. A question that matches no
// keywords at all returns domain.ErrNotFound.
func (s *Service) Match(question string) (domain.GuidanceEntry, error) {
	q := normalize(question)
	if q == "" {
		return domain.GuidanceEntry{}, fmt.Errorf("empty question: %w", domain.ErrInvalidArgument)
	}

	best := -1
	bestScore := 0
	for i, entry := range s.entries {
		score := 0
		for _, kw := range entry.Keywords {
			if containsPhrase(q, kw) {
				score++
			}
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return domain.GuidanceEntry{}, fmt.Errorf("no guidance for question: %w", domain.ErrNotFound)
	}
	return s.entries[best], nil
}

// Fallback returns the generic entry served when no topic matches.
func (s *Service) Fallback() domain.GuidanceEntry {
	return s.fallback
}

// Entries returns the full table in load order.
func (s *Service) Entries() []domain.GuidanceEntry {
	return s.entries
}

// normalize lowercases the question and folds punctuation into spaces so that
// keyword phrases match on word boundaries.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// containsPhrase reports whether the normalized question contains the keyword
// phrase as a whole-word sequence.
func containsPhrase(q, phrase string) bool {
	p := normalize(phrase)
	if p == "" {
		return false
	}
	idx := 0
	for {
		i := strings.Index(q[idx:], p)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(p)
		leftOK := start == 0 || q[start-1] == ' '
		rightOK := end == len(q) || q[end] == ' '
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}
