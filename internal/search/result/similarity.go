package result

import (
	"strings"
	"unicode"
)

// TokenSet is a set of lowercased identifier-like tokens.
type TokenSet map[string]struct{}

// Tokens splits text into a set of lowercased identifier tokens of length
// two or more.
func Tokens(text string) TokenSet {
	set := make(TokenSet)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_'
	})
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// TokensOf returns the token set of a result, preferring hydrated content.
func TokensOf(r *EnrichedResult) TokenSet {
	if r.Content != "" {
		return Tokens(r.Content)
	}
	return Tokens(r.Snippet)
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Overlap returns the Jaccard index of two string lists, compared case-insensitively.
func Overlap(a, b []string) float64 {
	sa := make(TokenSet, len(a))
	for _, s := range a {
		sa[strings.ToLower(s)] = struct{}{}
	}
	sb := make(TokenSet, len(b))
	for _, s := range b {
		sb[strings.ToLower(s)] = struct{}{}
	}
	return Jaccard(sa, sb)
}
