// Package relevance decides whether an inbound email is worth processing as
// a lead signal at all. It is a pure function over text: an ordered list of
// predicate rules evaluated first-match-wins. Rule order is load-bearing —
// noise and aggregator rejection must run before the newsletter check, which
// must run before the keyword accepts, or later rules over-accept.
package relevance

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadmail-cli/internal/model"
)

// Transactional/noise subject patterns. Any match rejects the email outright.
var excludeSubjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bdebited\b`),
	regexp.MustCompile(`\bcredited\b`),
	regexp.MustCompile(`\botp\b`),
	regexp.MustCompile(`\bstatement\b`),
	regexp.MustCompile(`\binvoice\b`),
	regexp.MustCompile(`\border\b`),
	regexp.MustCompile(`\bdelivered\b`),
	regexp.MustCompile(`\bshipment\b`),
	regexp.MustCompile(`\bnewsletter\b`),
	regexp.MustCompile(`\bdigest\b`),
	regexp.MustCompile(`\bconfirmation\b`),
	regexp.MustCompile(`\breset password\b`),
	regexp.MustCompile(`\bverification code\b`),
	regexp.MustCompile(`\btransaction\b`),
	regexp.MustCompile(`\boffer\b`),
	regexp.MustCompile(`\bdiscount\b`),
	regexp.MustCompile(`\bsale\b`),
}

// Job-board and professional-network domains. These are deferred to a
// separate aggregator pipeline, not dropped as noise.
var aggregatorDomains = []string{
	"naukri.com", "linkedin.com", "indeed.com", "internshala.com",
	"glassdoor.com", "shine.com", "foundit.in", "monster.com", "lnkd.in",
}

// Phrases that mark marketing/newsletter mail.
var newsletterSignals = []string{
	"unsubscribe", "manage preferences", "view in browser",
	"promotional", "you received this email because",
}

// Strong hiring signals: any hit accepts the email.
var primaryKeywords = []string{
	"internship", "intern", "hiring", "we are hiring",
	"job opening", "opening", "vacancy", "role", "position",
	"interview", "shortlisted", "shortlist", "selection",
	"recruitment", "recruiter", "talent acquisition",
	"practice school", "campus hiring", "placement",
}

// Weak signals that also appear in marketing mail; they only count when
// paired with job evidence.
var secondaryKeywords = []string{
	"apply", "application", "opportunity", "career", "careers",
}

var jobEvidence = []string{
	"resume", "cv", "curriculum vitae",
	"job description", "jd", "responsibilities", "requirements",
	"stipend", "ctc", "compensation", "salary",
	"joining", "start date", "duration", "eligibility",
	"assessment", "coding test", "oa", "interview",
}

// rule is one entry in the ordered decision list. apply returns the decision
// and true when the rule fires; later rules are not consulted.
type rule struct {
	name  string
	apply func(subj, body, domain string) (model.RelevanceDecision, bool)
}

var rules = []rule{
	{"excluded_subject", rejectNoiseSubject},
	{"aggregator_domain", rejectAggregator},
	{"newsletter_signal", rejectNewsletter},
	{"primary_keyword", acceptPrimary},
	{"secondary_plus_evidence", acceptSecondaryWithEvidence},
}

// Classify runs the rule list over the lower-cased subject/body and sender
// domain. Pure, no I/O; malformed input degrades to a "no signal" reject.
func Classify(subject, body, fromEmail string) model.RelevanceDecision {
	subj := strings.ToLower(subject)
	bodyLower := strings.ToLower(body)
	dom := senderDomain(fromEmail)

	for _, r := range rules {
		if d, ok := r.apply(subj, bodyLower, dom); ok {
			return d
		}
	}
	return model.RelevanceDecision{ShouldProcess: false, Reason: "no_lead_signals"}
}

func senderDomain(fromEmail string) string {
	at := strings.LastIndex(fromEmail, "@")
	if at < 0 || at == len(fromEmail)-1 {
		return ""
	}
	return strings.TrimSpace(strings.ToLower(fromEmail[at+1:]))
}

func rejectNoiseSubject(subj, _, _ string) (model.RelevanceDecision, bool) {
	for _, pat := range excludeSubjectPatterns {
		if pat.MatchString(subj) {
			return model.RelevanceDecision{
				ShouldProcess: false,
				Reason:        "excluded_subject:" + pat.String(),
			}, true
		}
	}
	return model.RelevanceDecision{}, false
}

func rejectAggregator(_, _, dom string) (model.RelevanceDecision, bool) {
	if dom == "" {
		return model.RelevanceDecision{}, false
	}
	for _, agg := range aggregatorDomains {
		if strings.HasSuffix(dom, agg) {
			return model.RelevanceDecision{ShouldProcess: false, Reason: "aggregator_domain"}, true
		}
	}
	return model.RelevanceDecision{}, false
}

func rejectNewsletter(subj, body, _ string) (model.RelevanceDecision, bool) {
	if !containsAny(body, newsletterSignals) {
		return model.RelevanceDecision{}, false
	}
	// A primary hiring keyword rescues an otherwise newsletter-looking mail.
	if containsAny(subj+"\n"+body, primaryKeywords) {
		return model.RelevanceDecision{}, false
	}
	return model.RelevanceDecision{ShouldProcess: false, Reason: "newsletter_signal"}, true
}

func acceptPrimary(subj, body, _ string) (model.RelevanceDecision, bool) {
	hay := subj + "\n" + body
	for _, kw := range primaryKeywords {
		if strings.Contains(hay, kw) {
			return model.RelevanceDecision{ShouldProcess: true, Reason: "primary:" + kw}, true
		}
	}
	return model.RelevanceDecision{}, false
}

func acceptSecondaryWithEvidence(subj, body, _ string) (model.RelevanceDecision, bool) {
	hay := subj + "\n" + body
	if containsAny(hay, secondaryKeywords) && containsAny(hay, jobEvidence) {
		return model.RelevanceDecision{ShouldProcess: true, Reason: "secondary+evidence"}, true
	}
	return model.RelevanceDecision{}, false
}

func containsAny(hay string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(hay, n) {
			return true
		}
	}
	return false
}
