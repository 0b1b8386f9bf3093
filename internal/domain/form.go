package domain

import "time"

// FormRecord is a single legal-form entry in the store. Records are written
// by the crawler and are immutable from the point of view of the search path.
type FormRecord struct {
	ID        int64
	Code      string // Judicial Council form number, e.g. "FL-180"
	Title     string
	Topic     string
	URL       string
	Content   string
	Source    string
	Metadata  map[string]any
	CreatedAt time.Time
}

// SearchResult pairs a form with its cosine similarity to the query vector.
// Similarity is 1 - cosine_distance, expected in [0, 1] for normalized
// natural-language embeddings.
type SearchResult struct {
	Form       FormRecord
	Similarity float64
}

// SourceStats describes one ingestion source as exposed by GET /api/sources.
type SourceStats struct {
	Source    string
	FormCount int64
	LastSeen  time.Time
}

// StoreStats is the aggregate view behind GET /api/stats.
type StoreStats struct {
	TotalForms  int64
	TotalTopics int64
	Sources     []SourceStats
}
