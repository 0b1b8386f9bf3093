package formdex

import "time"

// SearchRequest are the parameters for a semantic form search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	Topic string `json:"topic,omitempty"`
}

// SearchResponse is the ranked result set for one query.
type SearchResponse struct {
	Query      string `json:"query"`
	Forms      []Form `json:"forms"`
	TotalFound int    `json:"total_found"`
}

// Form is a single search hit.
type Form struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Topic      string  `json:"topic"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Answer combines static guidance with semantically similar forms.
type Answer struct {
	Question        string   `json:"question"`
	Guidance        Guidance `json:"guidance"`
	RelevantForms   []Form   `json:"relevant_forms"`
	SearchPerformed bool     `json:"search_performed"`
}

// Guidance is the curated self-help entry for one legal topic.
type Guidance struct {
	Topic        string       `json:"topic"`
	Description  string       `json:"description"`
	Forms        []GuidedForm `json:"forms"`
	Requirements []string     `json:"requirements"`
	Steps        []string     `json:"steps"`
	Links        []Link       `json:"links"`
}

// GuidedForm names one form a guidance entry recommends.
type GuidedForm struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
	URL     string `json:"url,omitempty"`
}

// Link is an external self-help resource.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Crawl type constants accepted by TriggerCrawl.
const (
	CrawlSingle  = "single"
	CrawlSmart   = "smart"
	CrawlPopular = "popular"
)

// CrawlJob is a point-in-time snapshot of a crawl job.
type CrawlJob struct {
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

// Source describes one ingestion source.
type Source struct {
	Source    string `json:"source"`
	FormCount int64  `json:"form_count"`
	LastSeen  string `json:"last_seen"`
}

// Stats is the aggregate store view.
type Stats struct {
	TotalForms  int64 `json:"total_forms"`
	TotalTopics int64 `json:"total_topics"`
	Sources     int   `json:"sources"`
}

// HealthStatus reports per-dependency health.
type HealthStatus struct {
	Healthy  bool              `json:"healthy"`
	Services map[string]string `json:"services"`
}
