package query

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minFragmentLength = 3

var (
	conjunctionRe = regexp.MustCompile(`(?i)\b(and|or|also|plus|additionally|furthermore|moreover)\b`)
	terminatorRe  = regexp.MustCompile(`[.!?]+(\s+|$)`)
	fragmentRe    = regexp.MustCompile(`(?i)\b(and|or|also|plus|additionally|furthermore|moreover)\b|[.!?]+(\s+|$)`)
)

// IsComplex reports whether a query should be decomposed: it contains a
// conjunction, has several sentences, or is both long and wordy.
func IsComplex(text string) bool {
	if conjunctionRe.MatchString(text) {
		return true
	}
	if len(terminatorRe.FindAllString(text, -1)) > 1 {
		return true
	}
	return utf8.RuneCountInString(text) > 100 && len(strings.Fields(text)) > 15
}

// DecomposeComplexQuery splits a complex query into classified sub-queries.
// The first fragment has high priority; later fragments depend on it.
// Simple queries yield an empty slice.
func DecomposeComplexQuery(text string, qctx *Context) []SubQuery {
	text = strings.TrimSpace(text)
	if !IsComplex(text) {
		return []SubQuery{}
	}

	var fragments []string
	for _, part := range fragmentRe.Split(text, -1) {
		part = strings.Trim(strings.TrimSpace(part), ",;:")
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) <= minFragmentLength {
			continue
		}
		fragments = append(fragments, part)
	}

	subQueries := make([]SubQuery, 0, len(fragments))
	for i, fragment := range fragments {
		sub := SubQuery{
			Query:        fragment,
			Intent:       ClassifyIntent(fragment, qctx),
			Priority:     PriorityHigh,
			Dependencies: []string{},
		}
		if i > 0 {
			sub.Priority = PriorityMedium
			sub.Dependencies = []string{fragments[0]}
		}
		subQueries = append(subQueries, sub)
	}

	return subQueries
}

// countConjunctions counts conjunction keywords in text.
func countConjunctions(text string) int {
	return len(conjunctionRe.FindAllString(text, -1))
}
