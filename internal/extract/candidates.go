// Package extract turns a noisy email into an identified company. Cheap,
// high-precision heuristics run first (subject patterns, body labels, domain
// guesses); a model-based extractor is escalated to only when the heuristic
// output is inconclusive.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/leadmail-cli/internal/model"
	"github.com/sells-group/leadmail-cli/internal/normalize"
)

// Candidate weights by signal precision. Body "Company:" labels are the
// sharpest signal, domain guesses the bluntest.
const (
	weightBodyCompany  = 9
	weightBodyOrgLabel = 8
	weightSubject      = 6
	weightBodyAtWith   = 6
	weightDomain       = 4
)

// bodyPattern pairs a label regex with its precision weight.
type bodyPattern struct {
	re     *regexp.Regexp
	weight int
}

var bodyPatterns = []bodyPattern{
	{regexp.MustCompile(`(?i)\bCompany\s*:\s*(.+)`), weightBodyCompany},
	{regexp.MustCompile(`(?i)\bOrganization\s*:\s*(.+)`), weightBodyOrgLabel},
	{regexp.MustCompile(`(?i)\bEmployer\s*:\s*(.+)`), weightBodyOrgLabel},
	{regexp.MustCompile(`(?i)\bInternship\s+(?:at|with)\s+([A-Za-z][A-Za-z0-9&.\- ]{2,})`), weightBodyAtWith},
	{regexp.MustCompile(`(?i)\bOpportunity\s+(?:at|with)\s+([A-Za-z][A-Za-z0-9&.\- ]{2,})`), weightBodyAtWith},
}

// Subject "X at COMPANY" wants a capitalized name; subjects are too short to
// risk case-insensitive matching here.
var subjectAtWith = regexp.MustCompile(`\b(?:at|with)\s+([A-Z][A-Za-z0-9&.\- ]{2,})\b`)

var noiseSeparators = regexp.MustCompile(`[\n\r\t]| - | — | – | \| `)

// Identity keys that look like organizations but never denote a company.
var stopOrgs = map[string]bool{
	"placement cell": true, "placement unit": true, "career services": true,
	"internship cell": true, "human resources": true, "hr team": true,
	"hr": true, "talent acquisition": true, "recruitment": true,
	"recruiter": true, "team": true, "alerts": true, "newsletter": true,
	"digest": true, "no reply": true, "noreply": true,
	"upi": true, "otp": true, "invoice": true, "statement": true, "bank": true,
}

// Candidates extracts ranked, deduplicated company-name candidates from the
// subject, body, and sender domain. Best score first; ties keep the first
// candidate encountered. No two returned candidates share an identity key.
func Candidates(subject, body, fromEmail string) []model.Candidate {
	var cands []model.Candidate

	for _, hit := range subjectHits(subject) {
		cands = append(cands, model.Candidate{Name: hit, Score: weightSubject, Source: "subject"})
	}

	for i, pat := range bodyPatterns {
		for _, m := range pat.re.FindAllStringSubmatch(body, -1) {
			val := trimNoise(m[1])
			if val == "" {
				continue
			}
			cands = append(cands, model.Candidate{
				Name:   val,
				Score:  pat.weight,
				Source: "body_pattern:" + strconv.Itoa(i),
			})
		}
	}

	for _, dom := range collectDomains(body, fromEmail) {
		guess := domainToCompanyGuess(dom)
		if guess == "" {
			continue
		}
		cands = append(cands, model.Candidate{Name: guess, Score: weightDomain, Source: "domain:" + dom})
	}

	return dedupeByIdentity(cands)
}

// PickBest returns the top candidate's display name, a confidence mapped
// from its weight into [0.4, 0.95], and the originating source tag.
// Returns ("", 0, "none") when no candidates survive.
func PickBest(subject, body, fromEmail string) (name string, confidence float64, source string) {
	cands := Candidates(subject, body, fromEmail)
	if len(cands) == 0 {
		return "", 0, model.SourceNone
	}

	top := cands[0]
	conf := float64(top.Score) / 10.0
	if conf > 0.95 {
		conf = 0.95
	}
	if conf < 0.4 {
		conf = 0.4
	}
	return top.Name, conf, top.Source
}

func subjectHits(subject string) []string {
	s := strings.TrimSpace(subject)
	var out []string

	if m := subjectAtWith.FindStringSubmatch(s); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}

	// "COMPANY | Internship Role" — a short pipe prefix is usually the brand.
	if idx := strings.Index(s, "|"); idx >= 0 {
		left := strings.TrimSpace(s[:idx])
		if len(left) >= 3 && len(left) <= 60 {
			out = append(out, left)
		}
	}

	var trimmed []string
	for _, h := range out {
		if t := trimNoise(h); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return trimmed
}

// trimNoise truncates a matched value at the first line break or common
// separator, strips trailing punctuation, and caps the length at 80.
func trimNoise(s string) string {
	if s == "" {
		return ""
	}
	if loc := noiseSeparators.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = strings.Trim(s, " .,:;!-")
	if len(s) > 80 {
		s = strings.TrimSpace(s[:80])
	}
	return s
}

// dedupeByIdentity keeps the highest-weighted candidate per identity key,
// discarding empty keys and stop-org phrases, then sorts best-first. The
// kept slice preserves first-encounter order so equal weights tie-break
// deterministically under the stable sort.
func dedupeByIdentity(cands []model.Candidate) []model.Candidate {
	byKey := make(map[string]int) // identity key → index into kept
	var kept []model.Candidate

	for _, c := range cands {
		disp := normalize.Display(c.Name)
		key := normalize.Key(disp)
		if key == "" || stopOrgs[key] {
			continue
		}

		if idx, ok := byKey[key]; ok {
			if c.Score > kept[idx].Score {
				kept[idx] = model.Candidate{Name: disp, Score: c.Score, Source: c.Source}
			}
			continue
		}
		byKey[key] = len(kept)
		kept = append(kept, model.Candidate{Name: disp, Score: c.Score, Source: c.Source})
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	return kept
}
