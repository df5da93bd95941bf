package explain

import (
	"fmt"
	"path"

	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// Suggestion priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// suggestions builds quality hints plus one arm per primary intent.
func suggestions(intent query.Intent, r *result.RankedResult) []result.Suggestion {
	out := []result.Suggestion{}

	if r.Quality.ReadabilityScore < ReadabilityBar {
		out = append(out, result.Suggestion{
			Type:     result.SuggestionImprovement,
			Message:  fmt.Sprintf("Readability is %.2f; consider splitting long functions and clarifying names", r.Quality.ReadabilityScore),
			Priority: PriorityMedium,
		})
	}
	if r.Quality.DocumentationRatio < DocumentationBar {
		out = append(out, result.Suggestion{
			Type:     result.SuggestionDocumentation,
			Message:  "Add doc comments describing the purpose and contract of this code",
			Priority: PriorityLow,
		})
	}

	name := path.Base(r.FilePath)
	if len(r.Symbols) > 0 {
		name = r.Symbols[0]
	}

	switch intent {
	case query.IntentFindExamples:
		out = append(out, result.Suggestion{
			Type:     result.SuggestionUsage,
			Message:  fmt.Sprintf("Look at the call sites of %s to see it used in context", name),
			Priority: PriorityMedium,
		})
	case query.IntentAnalyzeQuality:
		if !r.Quality.HasTests {
			out = append(out, result.Suggestion{
				Type:     result.SuggestionTesting,
				Message:  fmt.Sprintf("%s has no tests; add tests before refactoring", name),
				Priority: PriorityHigh,
			})
		}
		for _, smell := range r.Quality.CodeSmells {
			out = append(out, result.Suggestion{
				Type:     result.SuggestionImprovement,
				Message:  fmt.Sprintf("Address code smell: %s", smell),
				Priority: PriorityMedium,
			})
		}
	case query.IntentDebugIssue:
		if !r.Enhanced.HasLogging {
			out = append(out, result.Suggestion{
				Type:     result.SuggestionImprovement,
				Message:  "Add logging around failure paths to make the issue observable",
				Priority: PriorityLow,
			})
		}
	case query.IntentFindImplementation,
		query.IntentFindUsage,
		query.IntentFindSimilar,
		query.IntentFindPatterns,
		query.IntentUnderstandBehavior:
	}

	return out
}
