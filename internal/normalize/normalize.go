// Package normalize maps company display names to stable identity keys.
//
// The identity key is the only value ever used to decide that two mentions
// refer to the same organization. It is deliberately lossy: case,
// punctuation, and legal-entity suffixes carry no identity.
package normalize

import (
	"regexp"
	"strings"
)

// Legal-entity suffix tokens stripped from the end of a name. Matching is
// token-wise and iterative so multi-suffix tails ("pvt ltd", "co. inc")
// are fully removed.
var legalSuffixes = map[string]bool{
	"pvt": true, "pvt.": true,
	"ltd": true, "ltd.": true,
	"private": true, "limited": true,
	"llp": true,
	"inc": true, "inc.": true,
	"corp": true, "corp.": true,
	"co": true, "co.": true,
	"company": true,
}

var (
	brackets   = regexp.MustCompile(`[(){}\[\]]`)
	disallowed = regexp.MustCompile(`[^a-z0-9&.\- ]+`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// Key canonicalizes a display name into an identity key. Returns "" for
// empty or unusable input; callers must treat an empty key as "no identity"
// and discard the candidate.
func Key(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	s = brackets.ReplaceAllString(s, " ")
	s = disallowed.ReplaceAllString(s, " ")
	s = strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))

	tokens := strings.Fields(s)
	for len(tokens) > 0 && legalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	s = strings.Join(tokens, " ")
	s = strings.ReplaceAll(s, "&", "and")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// Display trims and collapses whitespace but keeps case and punctuation.
// Used for the human-readable label stored next to the identity key.
func Display(name string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(name, " "))
}
