package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var urlRe = regexp.MustCompile(`(?i)https?://[^\s<>()]+`)

// Personal-email providers: the sender domain says nothing about a company.
var personalEmailDomains = map[string]bool{
	"gmail.com": true, "outlook.com": true, "hotmail.com": true,
	"yahoo.com": true, "icloud.com": true, "proton.me": true,
	"protonmail.com": true, "aol.com": true, "zoho.com": true,
}

// Infrastructure domains that appear in lead emails but are never the
// company itself: ATS platforms, email delivery, link shorteners.
var nonCompanyDomains = []string{
	"greenhouse.io", "lever.co", "workday.com", "myworkday.com",
	"successfactors.com", "smartrecruiters.com", "talent.com",
	"sendgrid.net", "mailchimp.com", "sparkpostmail.com",
	"campaign-archive.com", "hubspotemail.net", "hs-sites.com",
	"amazonaws.com", "cloudfront.net", "lnkd.in", "bit.ly", "t.co",
}

var googleDocDomains = []string{
	"google.com", "docs.google.com", "forms.gle", "drive.google.com",
}

// Registrable labels that are not company identifiers. When the eTLD+1
// label is one of these, the last subdomain label is the better guess
// (axis.bank.in → "axis", not "bank").
var genericLabels = map[string]bool{
	"bank": true, "co": true, "com": true, "org": true, "net": true,
	"edu": true, "gov": true, "nic": true, "mail": true, "email": true,
	"alerts": true,
}

var nonLabelChars = regexp.MustCompile(`[^a-z0-9\-]+`)

var titleCaser = cases.Title(language.English)

// collectDomains gathers the sender domain and every distinct host from
// URLs in the body, dropping personal-email, Google document, and
// infrastructure domains. Returned sorted for deterministic candidate order.
func collectDomains(body, fromEmail string) []string {
	seen := make(map[string]bool)

	if at := strings.LastIndex(fromEmail, "@"); at >= 0 && at < len(fromEmail)-1 {
		seen[strings.TrimSpace(strings.ToLower(fromEmail[at+1:]))] = true
	}

	for _, raw := range urlRe.FindAllString(body, -1) {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		host = strings.TrimPrefix(host, "www.")
		if host != "" {
			seen[host] = true
		}
	}

	var out []string
	for dom := range seen {
		if dom == "" || personalEmailDomains[dom] {
			continue
		}
		if hasSuffixAny(dom, googleDocDomains) || hasSuffixAny(dom, nonCompanyDomains) {
			continue
		}
		out = append(out, dom)
	}
	sort.Strings(out)
	return out
}

// domainToCompanyGuess derives an organization name from a domain using the
// public suffix list: the registrable label, or the last subdomain label
// when the registrable label is generic. Returns "" when no plausible name
// remains.
func domainToCompanyGuess(domain string) string {
	d := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if d == "" {
		return ""
	}

	base, sub := splitRegistrable(d)
	if base == "" {
		return ""
	}

	if genericLabels[base] && sub != "" {
		labels := strings.Split(sub, ".")
		base = labels[len(labels)-1]
	}

	base = nonLabelChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(strings.ReplaceAll(base, "-", " "))
	if len(base) < 3 {
		return ""
	}

	return titleCaser.String(base)
}

// splitRegistrable returns the registrable domain's first label and the
// subdomain portion, e.g. "email.openai.com" → ("openai", "email").
func splitRegistrable(d string) (base, sub string) {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(d)
	if err != nil {
		// Domain is itself a public suffix or otherwise unsplittable.
		return "", ""
	}

	base = etld1
	if idx := strings.Index(etld1, "."); idx > 0 {
		base = etld1[:idx]
	}

	if len(d) > len(etld1) {
		sub = strings.TrimSuffix(d[:len(d)-len(etld1)], ".")
	}
	return base, sub
}

func hasSuffixAny(dom string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(dom, s) {
			return true
		}
	}
	return false
}
