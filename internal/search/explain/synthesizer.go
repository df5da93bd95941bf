// Package explain produces explanations, suggestions and alternatives for
// ranked search results.
package explain

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// Suggestion bars and alternative limits.
const (
	ReadabilityBar       = 0.6
	DocumentationBar     = 0.1
	DefaultAltSimilarity = 0.5
	MaxAlternatives      = 3

	contentWeight   = 0.6
	structureWeight = 0.4
	maxListed       = 3
)

// Options control explanation detail.
type Options struct {
	IncludeQualityMetrics bool
	IncludeRelationships  bool

	// AlternativeSimilarity is the minimum similarity for an alternative.
	AlternativeSimilarity float64
}

// Synthesizer builds explained results. It keeps no state between calls.
type Synthesizer struct {
	log *logger.Logger
}

// NewSynthesizer creates a new explanation synthesizer.
func NewSynthesizer(log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Discard()
	}
	return &Synthesizer{log: log.WithComponent("explain")}
}

// Explain attaches an explanation, suggestions and alternatives to every
// ranked result. Every explanation carries at least a similarity factor.
func (s *Synthesizer) Explain(ctx context.Context, ranked []result.RankedResult, pq *query.ProcessedQuery, opts Options) []result.ExplainedResult {
	start := time.Now()

	if opts.AlternativeSimilarity <= 0 {
		opts.AlternativeSimilarity = DefaultAltSimilarity
	}

	terms := queryTerms(pq)
	profiles := make([]profile, len(ranked))
	for i := range ranked {
		profiles[i] = newProfile(&ranked[i])
	}

	out := make([]result.ExplainedResult, len(ranked))
	totalAlternatives := 0
	for i := range ranked {
		r := &ranked[i]
		matched := matchConcepts(terms, profiles[i])

		out[i] = result.ExplainedResult{
			RankedResult: *r,
			Explanation: result.Explanation{
				WhyRelevant:       whyRelevant(intentOf(pq), r, matched),
				KeyFeatures:       keyFeatures(r, opts),
				MatchedConcepts:   matched,
				ConfidenceFactors: confidenceFactors(r, pq, matched, len(terms), opts),
			},
			Suggestions:  suggestions(intentOf(pq), r),
			Alternatives: alternatives(i, ranked, profiles, opts.AlternativeSimilarity),
		}
		totalAlternatives += len(out[i].Alternatives)
	}

	s.log.WithContext(ctx).Debug("Explanations generated",
		"results", len(out),
		"query_terms", len(terms),
		"alternatives", totalAlternatives,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return out
}

func intentOf(pq *query.ProcessedQuery) query.Intent {
	if pq == nil {
		return query.IntentFindImplementation
	}
	return pq.Intent.Primary
}

// whyRelevant selects the explanation template for the primary intent.
func whyRelevant(intent query.Intent, r *result.RankedResult, matched []string) string {
	subject := subjectOf(r, matched)

	switch intent {
	case query.IntentFindImplementation:
		return fmt.Sprintf("Contains the implementation of %s", subject)
	case query.IntentFindUsage:
		return fmt.Sprintf("Shows how %s is used and referenced", subject)
	case query.IntentFindSimilar:
		return fmt.Sprintf("Code similar to %s", subject)
	case query.IntentAnalyzeQuality:
		return fmt.Sprintf("Candidate for quality analysis of %s (overall score %.2f)", subject, r.Quality.OverallScore)
	case query.IntentFindPatterns:
		if len(r.Enhanced.DesignPatterns) > 0 {
			return fmt.Sprintf("Demonstrates the %s pattern in %s", strings.Join(r.Enhanced.DesignPatterns, "/"), subject)
		}
		return fmt.Sprintf("Shows the structure and architecture around %s", subject)
	case query.IntentUnderstandBehavior:
		return fmt.Sprintf("Explains the behavior and control flow of %s", subject)
	case query.IntentFindExamples:
		return fmt.Sprintf("Provides a usage example of %s", subject)
	case query.IntentDebugIssue:
		if r.Enhanced.HasErrorHandling {
			return fmt.Sprintf("Contains error handling relevant to %s", subject)
		}
		return fmt.Sprintf("Code path for %s; check its error handling", subject)
	default:
		return fmt.Sprintf("Matches %s", subject)
	}
}

func subjectOf(r *result.RankedResult, matched []string) string {
	switch {
	case len(matched) > 0:
		return strings.Join(limit(matched, maxListed), ", ")
	case len(r.Symbols) > 0:
		return r.Symbols[0]
	default:
		return path.Base(r.FilePath)
	}
}

func keyFeatures(r *result.RankedResult, opts Options) []string {
	features := []string{}

	for _, sym := range limit(r.Symbols, maxListed) {
		features = append(features, "defines "+sym)
	}
	for _, p := range r.Enhanced.DesignPatterns {
		features = append(features, p+" pattern")
	}
	if r.Enhanced.HasErrorHandling {
		features = append(features, "error handling")
	}
	if r.Enhanced.HasLogging {
		features = append(features, "logging")
	}
	if r.Quality.HasTests {
		features = append(features, "covered by tests")
	}
	if r.Enhanced.IsTestFile || result.IsTestPath(r.FilePath) {
		features = append(features, "test code")
	}
	if r.Quality.DocumentationRatio >= 0.2 {
		features = append(features, "well documented")
	}

	if opts.IncludeQualityMetrics {
		features = append(features, fmt.Sprintf("quality %.2f (readability %.2f, maintainability %.2f)",
			r.Quality.OverallScore, r.Quality.ReadabilityScore, r.Quality.MaintainabilityScore))
	}
	if opts.IncludeRelationships {
		if deps := limit(r.Enhanced.Dependencies, maxListed); len(deps) > 0 {
			features = append(features, "depends on "+strings.Join(deps, ", "))
		}
		if r.Enhanced.UsageFrequency > 0 {
			features = append(features, fmt.Sprintf("referenced %d times", r.Enhanced.UsageFrequency))
		}
	}

	return features
}

func confidenceFactors(r *result.RankedResult, pq *query.ProcessedQuery, matched []string, termCount int, opts Options) []result.ConfidenceFactor {
	factors := []result.ConfidenceFactor{
		{Name: "similarity", Score: r.Score, Description: "vector similarity to the query"},
		{Name: "ranking", Score: r.CompositeScore, Description: "composite score after strategy weighting"},
	}

	if termCount > 0 {
		factors = append(factors, result.ConfidenceFactor{
			Name:        "concept_match",
			Score:       float64(len(matched)) / float64(termCount),
			Description: fmt.Sprintf("%d of %d query concepts found", len(matched), termCount),
		})
	}
	if pq != nil {
		factors = append(factors, result.ConfidenceFactor{
			Name:        "intent",
			Score:       pq.Intent.Confidence,
			Description: fmt.Sprintf("classified as %s", pq.Intent.Primary),
		})
	}
	if opts.IncludeQualityMetrics {
		factors = append(factors, result.ConfidenceFactor{
			Name:        "quality",
			Score:       r.Quality.OverallScore,
			Description: "overall code quality",
		})
	}

	return factors
}

func limit(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

// sortedKeys returns map keys in ascending order.
func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
