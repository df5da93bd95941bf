package ranking

import (
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// Thresholds used by condition predicates.
const (
	HighQualityThreshold     = 0.8
	HighComplexityThreshold  = 0.7
	DocumentedRatioThreshold = 0.2
)

// Condition is a pure predicate over a result and the query it answers.
type Condition func(r *result.EnrichedResult, pq *query.ProcessedQuery) bool

// conditions maps factor condition names to predicates.
var conditions = map[string]Condition{
	query.CondHasTests: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Quality.HasTests
	},
	query.CondHasCodeSmells: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return len(r.Quality.CodeSmells) > 0
	},
	query.CondHasErrorHandling: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Enhanced.HasErrorHandling
	},
	query.CondHighQualityScore: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Quality.OverallScore >= HighQualityThreshold
	},
	query.CondNoDocumentation: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Quality.DocumentationRatio <= 0
	},
	query.CondHasDocumentation: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Quality.DocumentationRatio >= DocumentedRatioThreshold
	},
	query.CondHasDesignPatterns: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return len(r.Enhanced.DesignPatterns) > 0
	},
	query.CondHighComplexity: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Quality.ComplexityScore >= HighComplexityThreshold
	},
	query.CondHasLogging: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Enhanced.HasLogging
	},
	query.CondIsTestFile: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Enhanced.IsTestFile || result.IsTestPath(r.FilePath)
	},
	query.CondLanguageMatch: func(r *result.EnrichedResult, pq *query.ProcessedQuery) bool {
		return pq != nil && pq.Language != "" && query.NormalizeLanguage(r.Language) == pq.Language
	},
	query.CondHasUsages: func(r *result.EnrichedResult, _ *query.ProcessedQuery) bool {
		return r.Enhanced.UsageFrequency > 0
	},
}

// Evaluate reports whether the named condition holds. Unknown conditions never hold.
func Evaluate(name string, r *result.EnrichedResult, pq *query.ProcessedQuery) bool {
	cond, ok := conditions[name]
	if !ok {
		return false
	}
	return cond(r, pq)
}
