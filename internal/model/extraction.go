package model

// Extraction source tags. Heuristic results carry the subsystem tag that
// produced the winning candidate (e.g. "subject", "body_pattern:0",
// "domain:acme.com"); SourceLLM marks a model-derived result and SourceNone
// means no usable company was found.
const (
	SourceLLM  = "llm"
	SourceNone = "none"
)

// ExtractionResult is the final outcome of resolving one email into a
// company identity. Produced once per email and never mutated; the store
// consumes it to upsert a company and link it to the email.
type ExtractionResult struct {
	IsLead         bool     `json:"is_lead"`
	Reason         string   `json:"reason,omitempty"`
	CompanyName    string   `json:"company_name,omitempty"`
	NormalizedName string   `json:"normalized_name,omitempty"`
	CompanyDomain  string   `json:"company_domain,omitempty"`
	RoleTitle      string   `json:"role_title,omitempty"`
	Location       string   `json:"location,omitempty"`
	SourceLinks    []string `json:"source_links,omitempty"`
	Confidence     float64  `json:"confidence"`
	Source         string   `json:"source"`
}

// HasCompany reports whether the result carries a usable company identity.
func (r ExtractionResult) HasCompany() bool {
	return r.CompanyName != "" && r.NormalizedName != ""
}
