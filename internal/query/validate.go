package query

import (
	"strings"
	"unicode/utf8"
)

const (
	minQueryLength       = 3
	maxQueryLength       = 200
	ambiguousWordLimit   = 5
	unclearIntentBar     = 0.6
	baseEstimatedQuality = 0.8
)

// ValidateQuery reports problems with a query and estimates how well it will
// search. Only high-severity issues make a query invalid.
func ValidateQuery(text string, qctx *Context) ValidationResult {
	text = strings.TrimSpace(text)
	length := utf8.RuneCountInString(text)
	lower := strings.ToLower(text)

	issues := []ValidationIssue{}
	suggestions := []ValidationSuggestion{}

	if length < minQueryLength {
		issues = append(issues, ValidationIssue{
			Type:     IssueTooNarrow,
			Severity: SeverityHigh,
			Message:  "query is too short to search meaningfully",
		})
	}
	if length > maxQueryLength {
		issues = append(issues, ValidationIssue{
			Type:     IssueTooBroad,
			Severity: SeverityMedium,
			Message:  "query is very long; consider splitting it into focused queries",
		})
	}

	tokens := tokenize(text)
	if len(strings.Fields(text)) < ambiguousWordLimit && hasFiller(tokens) {
		issues = append(issues, ValidationIssue{
			Type:     IssueAmbiguous,
			Severity: SeverityMedium,
			Message:  "query relies on vague words such as \"it\" or \"this\"",
		})
	}

	languagePresent := (qctx != nil && qctx.Language != "") || DetectLanguage(lower) != ""
	if !languagePresent {
		suggestions = append(suggestions, ValidationSuggestion{
			Type:    SuggestionContextAddition,
			Message: "name a programming language to narrow the search",
			Example: text + " in go",
		})
	}

	intent := ClassifyIntent(text, qctx)
	if intent.Confidence < unclearIntentBar {
		issues = append(issues, ValidationIssue{
			Type:     IssueUnclearIntent,
			Severity: SeverityMedium,
			Message:  "the purpose of the query is unclear",
		})
		suggestions = append(suggestions, ValidationSuggestion{
			Type:    SuggestionRefinement,
			Message: "say what you want to do, e.g. find, debug, explain or review",
			Example: "find the implementation of " + text,
		})
	}

	high, medium := 0, 0
	isValid := true
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityHigh:
			high++
			isValid = false
		case SeverityMedium:
			medium++
		}
	}

	quality := baseEstimatedQuality - 0.3*float64(high) - 0.15*float64(medium)
	if languagePresent {
		quality += 0.1
	}
	if qctx != nil && qctx.Workspace != nil {
		quality += 0.1
	}
	if qctx != nil && len(qctx.RecentSearches) > 0 {
		quality += 0.05
	}
	if length > 20 && length < 100 {
		quality += 0.1
	}

	return ValidationResult{
		IsValid:          isValid,
		Issues:           issues,
		Suggestions:      suggestions,
		EstimatedQuality: clamp(quality, 0.1, 1.0),
	}
}

func hasFiller(tokens []string) bool {
	for _, token := range tokens {
		if fillerTokens[token] {
			return true
		}
	}
	return false
}
