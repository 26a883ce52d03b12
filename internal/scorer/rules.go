// Package scorer converts a company profile into a defensible numeric
// verdict against a fixed weighted rubric. The rule-based engine here is a
// pure function of the profile; an alternate model-based path with the same
// JSON contract lives in llm.go and is selected by configuration.
package scorer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/leadmail-cli/internal/model"
)

// Sub-scores are 1-5, with 0 meaning "no evidence": a missing dimension
// contributes zero weight rather than being excluded from the denominator.
// Incomplete profiles are penalized, not normalized away.

// ageDisqualified is the age sub-score sentinel: a company younger than a
// year is auto-rejected before any other dimension is computed.
const ageDisqualified = -1

// Label thresholds on the 0-100 total.
const (
	strongThreshold   = 80
	moderateThreshold = 60
	weakThreshold     = 40
)

// lowConfidenceThreshold flags profiles scored from thin evidence.
const lowConfidenceThreshold = 0.6

// Keyword vocabulary for the domain-relevance dimension.
var domainInterestKeywords = []string{
	// engineering / cs / electronics
	"software", "technology", "internet", "cloud", "ai", "machine learning",
	"electronics", "semiconductor", "telecommunications", "robotics",
	"data", "analytics", "cybersecurity",
	// finance / management
	"financial", "bank", "fintech", "payments", "investment", "consulting",
	// bio / health
	"health", "biotech", "pharma", "medical",
}

var highImpactKeywords = []string{
	"ai", "cloud", "platform", "infrastructure", "research", "data", "analytics",
}

var routineKeywords = []string{
	"retail", "news", "publishing", "media",
}

// metroHints is a rough metro-hub list keyed by substring.
var metroHints = []string{
	"san francisco", "seattle", "new york", "london", "singapore",
	"bengaluru", "bangalore", "mumbai", "delhi", "hyderabad", "chennai",
	"pune", "cupertino", "los angeles", "toronto", "sydney", "melbourne",
}

var revenueRe = regexp.MustCompile(`(\d+(\.\d+)?)\s*(billion|million)`)

// Score evaluates a profile against the rubric using the current year for
// company age.
func Score(profile model.CompanyProfile) model.ScoreResult {
	return scoreAt(profile, time.Now().Year())
}

func scoreAt(profile model.CompanyProfile, currentYear int) model.ScoreResult {
	ageScore := scoreAge(profile.FoundedYear, currentYear)
	if ageScore == ageDisqualified {
		return model.ScoreResult{
			Disqualified:      true,
			TotalScore:        0,
			Label:             model.LabelDisqualified,
			Reason:            "company age < 1 year (auto reject)",
			ProfileConfidence: profile.Confidence,
			LowConfidence:     profile.Confidence < lowConfidenceThreshold,
		}
	}

	subscores := map[string]int{
		model.DimAge:       ageScore,
		model.DimEmployees: scoreEmployees(profile.Employees),
		model.DimFinancial: scoreFinancial(profile.Revenue),
		model.DimFounders:  scoreFounders(),
		model.DimDomain:    scoreDomainRelevance(profile.Industry, profile.Description),
		model.DimProject:   scoreProjectQuality(profile.Industry, profile.Description),
		model.DimGeo:       scoreGeo(profile.HQLocation),
	}

	weights := model.ScoreWeights()

	var weighted float64
	for dim, w := range weights {
		weighted += float64(subscores[dim]) * w
	}

	total := math.Round(weighted/5.0*100*100) / 100

	var label model.ScoreLabel
	switch {
	case total >= strongThreshold:
		label = model.LabelStrong
	case total >= moderateThreshold:
		label = model.LabelModerate
	case total >= weakThreshold:
		label = model.LabelWeak
	default:
		label = model.LabelDisqualified
	}

	return model.ScoreResult{
		Disqualified:      label == model.LabelDisqualified,
		TotalScore:        total,
		Label:             label,
		LowConfidence:     profile.Confidence < lowConfidenceThreshold,
		ProfileConfidence: profile.Confidence,
		Subscores:         subscores,
		Weights:           weights,
	}
}

// scoreAge maps company age to 1-5. Returns ageDisqualified for companies
// younger than a year and 0 when the founding year is unknown.
func scoreAge(foundedYear, currentYear int) int {
	if foundedYear == 0 {
		return 0
	}
	age := currentYear - foundedYear
	switch {
	case age < 1:
		return ageDisqualified
	case age >= 30:
		return 5
	case age >= 15:
		return 4
	case age >= 7:
		return 3
	case age >= 2:
		return 2
	default:
		return 1
	}
}

func scoreEmployees(employees int) int {
	switch {
	case employees <= 0:
		return 0
	case employees >= 100000:
		return 5
	case employees >= 10000:
		return 4
	case employees >= 1000:
		return 3
	case employees >= 100:
		return 2
	default:
		return 1
	}
}

// scoreFinancial buckets revenue free text via a crude "<number>
// million|billion" parse, normalized to billions. Unparsable text scores 0.
func scoreFinancial(revenueText string) int {
	rev, ok := parseRevenueBillions(revenueText)
	if !ok {
		return 0
	}
	switch {
	case rev >= 50:
		return 5
	case rev >= 5:
		return 4
	case rev >= 1:
		return 3
	case rev >= 0.1:
		return 2
	default:
		return 1
	}
}

func parseRevenueBillions(revenueText string) (float64, bool) {
	if revenueText == "" {
		return 0, false
	}
	t := strings.ReplaceAll(strings.ToLower(revenueText), ",", "")
	m := revenueRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[3] == "million" {
		val /= 1000.0
	}
	return val, true
}

// scoreFounders is a placeholder: no founder data source exists yet, so the
// dimension always contributes zero weight.
func scoreFounders() int {
	return 0
}

func scoreDomainRelevance(industry, description string) int {
	text := strings.ToLower(strings.TrimSpace(industry + " " + description))
	if text == "" {
		return 0
	}

	hits := 0
	for _, kw := range domainInterestKeywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	switch {
	case hits >= 6:
		return 5
	case hits >= 4:
		return 4
	case hits >= 2:
		return 3
	case hits >= 1:
		return 2
	default:
		return 1
	}
}

// scoreProjectQuality proxies internship project depth from industry text:
// platform/product companies up, routine sectors down.
func scoreProjectQuality(industry, description string) int {
	text := strings.ToLower(strings.TrimSpace(industry + " " + description))
	if text == "" {
		return 0
	}

	score := 3
	if containsAny(text, highImpactKeywords) {
		score++
	}
	if containsAny(text, routineKeywords) {
		score--
	}

	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	return score
}

// scoreGeo gives 5 for a known metro hub, 3 for any other stated location,
// 0 for none.
func scoreGeo(hqLocation string) int {
	if strings.TrimSpace(hqLocation) == "" {
		return 0
	}
	if containsAny(strings.ToLower(hqLocation), metroHints) {
		return 5
	}
	return 3
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
