package model

import "time"

// CompanyProfile is a semi-structured company snapshot produced by the
// enrichment collaborator (Wikipedia infobox today). The scoring engine
// treats it as read-only input; zero values mean "unknown".
type CompanyProfile struct {
	Source      string    `json:"source"`
	SourceURL   string    `json:"source_url,omitempty"`
	Title       string    `json:"title,omitempty"`
	FoundedYear int       `json:"founded_year,omitempty"`
	Employees   int       `json:"employees,omitempty"`
	HQLocation  string    `json:"hq_location,omitempty"`
	Industry    string    `json:"industry,omitempty"`
	Revenue     string    `json:"revenue,omitempty"` // free text, e.g. "US$10 billion (2023)"
	Description string    `json:"description,omitempty"`
	Confidence  float64   `json:"confidence"`
	FetchedAt   time.Time `json:"fetched_at,omitempty"`
}
