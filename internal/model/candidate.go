package model

// Candidate is a provisional company-name guess produced by one of the
// heuristic signal sources. Score is a fixed precision-derived weight, not a
// probability: body "Company:" labels outrank subject hints, which outrank
// domain guesses. Candidates are ephemeral and collapse per identity key.
type Candidate struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Source string `json:"source"`
}
