package model

import "time"

// Company is a deduplicated organization. NormalizedName is the identity
// key: it is the only field ever used for equality, never the display name.
type Company struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

// EmailCompanyLink records that an email mentioned a company, with the
// confidence and source tag of the extraction that made the connection.
type EmailCompanyLink struct {
	EmailID    string    `json:"email_id"`
	CompanyID  string    `json:"company_id"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// RankedCompany is a company joined with its best profile and score for the
// ranked lead listing. Mentions counts distinct source emails.
type RankedCompany struct {
	Company  Company         `json:"company"`
	Profile  *CompanyProfile `json:"profile,omitempty"`
	Score    *ScoreResult    `json:"score,omitempty"`
	Mentions int             `json:"mentions"`
}
