package query

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	camelCaseRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	separatorRe = regexp.MustCompile(`[_\-.]+`)
)

// SplitCases splits an identifier by camelCase, snake_case, kebab-case and dots.
// Returns the sorted unique parts including the lowercased original.
func SplitCases(term string) []string {
	if len(term) < 3 {
		return []string{strings.ToLower(term)}
	}

	parts := map[string]struct{}{strings.ToLower(term): {}}

	spaced := term
	if hasCamelCase(term) {
		spaced = camelCaseRe.ReplaceAllString(term, "${1} ${2}")
	}
	spaced = separatorRe.ReplaceAllString(spaced, " ")

	for _, p := range strings.Fields(spaced) {
		if len(p) > 1 {
			parts[strings.ToLower(p)] = struct{}{}
		}
	}

	result := make([]string, 0, len(parts))
	for p := range parts {
		result = append(result, p)
	}
	sort.Strings(result)

	return result
}

func hasCamelCase(s string) bool {
	for i := 1; i < len(s); i++ {
		if unicode.IsLower(rune(s[i-1])) && unicode.IsUpper(rune(s[i])) {
			return true
		}
	}
	return false
}
