package model

// ScoreLabel buckets the 0-100 weighted total.
type ScoreLabel string

const (
	LabelStrong       ScoreLabel = "Strong"
	LabelModerate     ScoreLabel = "Moderate"
	LabelWeak         ScoreLabel = "Weak"
	LabelDisqualified ScoreLabel = "Disqualified"
)

// Scoring dimension names. Every ScoreResult carries exactly these seven
// sub-scores; 0 means the dimension had no evidence.
const (
	DimAge       = "age"
	DimEmployees = "employees"
	DimFinancial = "financial"
	DimFounders  = "founders"
	DimDomain    = "domain"
	DimProject   = "project"
	DimGeo       = "geo"
)

// ScoreWeights returns the fixed dimension weights. Fractions sum to 1.0.
func ScoreWeights() map[string]float64 {
	return map[string]float64{
		DimAge:       0.10,
		DimEmployees: 0.10,
		DimFinancial: 0.10,
		DimFounders:  0.05,
		DimDomain:    0.25,
		DimProject:   0.20,
		DimGeo:       0.20,
	}
}

// ScoreResult is the verdict for one company profile. Produced fresh on
// every scoring call and never mutated.
type ScoreResult struct {
	Disqualified      bool               `json:"disqualified"`
	TotalScore        float64            `json:"total_score_0_100"`
	Label             ScoreLabel         `json:"label"`
	Reason            string             `json:"reason,omitempty"`
	LowConfidence     bool               `json:"low_confidence"`
	ProfileConfidence float64            `json:"profile_confidence"`
	Subscores         map[string]int     `json:"subscores_1_to_5,omitempty"`
	Weights           map[string]float64 `json:"weights,omitempty"`
}
