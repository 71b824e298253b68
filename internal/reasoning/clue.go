package reasoning

import (
	"strings"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// DefaultNegationMarkers turn a clue into an elimination clue.
var DefaultNegationMarkers = []string{"not", "wasn't", "didn't"}

// IsNegation reports whether text contains any marker, ignoring case.
func IsNegation(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// ClassifyClue turns free clue text into assertions against the current domains.
//
// Only categories that still hold more than one candidate are scanned. A clue containing
// a negation marker eliminates every candidate it mentions; any other clue confirms the
// first mentioned candidate of each category, in domain order. Matching is a
// case-insensitive substring test.
func ClassifyClue(text string, store *DomainStore, markers []string) []casefile.Assertion {
	lower := strings.ToLower(text)
	kind := casefile.AssertionConfirm
	if IsNegation(text, markers) {
		kind = casefile.AssertionEliminate
	}

	var out []casefile.Assertion
	for _, name := range store.categories {
		domain := store.domains[name]
		if len(domain) <= 1 {
			continue
		}
		for _, value := range domain {
			if !strings.Contains(lower, strings.ToLower(value)) {
				continue
			}
			out = append(out, casefile.Assertion{Kind: kind, Category: name, Value: value})
			if kind == casefile.AssertionConfirm {
				break
			}
		}
	}
	return out
}
