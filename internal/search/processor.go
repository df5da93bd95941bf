// Package search runs enhanced code search: candidates from the vector index
// are hydrated, ranked, diversified and explained for the processed query.
package search

import (
	"context"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/explain"
	"github.com/ricesearch/rice-insight/internal/search/postrank"
	"github.com/ricesearch/rice-insight/internal/search/ranking"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// Processor turns enriched results into ranked, diversified and explained
// results. It holds no per-query state and is safe for concurrent use.
type Processor struct {
	ranker    *ranking.Ranker
	postrank  *postrank.Pipeline
	explainer *explain.Synthesizer
	log       *logger.Logger
}

// ProcessResultsOutput is the outcome of ProcessResults.
type ProcessResultsOutput struct {
	Results []result.ExplainedResult `json:"results"`
	Stats   result.ProcessingStats   `json:"stats"`
}

// NewProcessor creates a result processor.
func NewProcessor(cfg postrank.Config, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}
	return &Processor{
		ranker:    ranking.NewRanker(log),
		postrank:  postrank.NewPipeline(cfg, log),
		explainer: explain.NewSynthesizer(log),
		log:       log.WithComponent("processor"),
	}
}

// ProcessResults filters by quality, ranks, diversifies and explains results.
// Empty input yields empty results and zero stats.
func (p *Processor) ProcessResults(ctx context.Context, raw []result.EnrichedResult, pq *query.ProcessedQuery, opts result.Options) (*ProcessResultsOutput, error) {
	start := time.Now()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &ProcessResultsOutput{Results: []result.ExplainedResult{}}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts = opts.Merge(pq)

	filtered := filterByQuality(raw, opts.FilterCriteria.QualityThreshold)
	ranked := p.ranker.Rank(ctx, filtered, pq, opts)

	pr, err := p.postrank.Process(ctx, ranked, diversifyOptions(opts))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	explained := p.explainer.Explain(ctx, pr.Results, pq, explainOptions(opts))
	if !opts.IncludeExplanations {
		reduceExplanations(explained)
	}

	stats := result.ProcessingStats{
		OriginalCount:       len(raw),
		FinalCount:          len(explained),
		ProcessingTime:      time.Since(start),
		DiversityScore:      postrank.EstimateDiversity(pr.Results),
		AverageQualityScore: averageQuality(pr.Results),
		FilteredByQuality:   len(raw) - len(filtered),
		DuplicatesRemoved:   pr.Dedup.Removed,
	}

	p.log.WithContext(ctx).Debug("Processed results",
		"original", stats.OriginalCount,
		"final", stats.FinalCount,
		"filtered_by_quality", stats.FilteredByQuality,
		"duplicates_removed", stats.DuplicatesRemoved,
		"diversity", stats.DiversityScore,
		"duration", stats.ProcessingTime,
	)

	return &ProcessResultsOutput{Results: explained, Stats: stats}, nil
}

// RankResults scores and orders enriched results.
func (p *Processor) RankResults(ctx context.Context, enriched []result.EnrichedResult, pq *query.ProcessedQuery, opts result.Options) []result.RankedResult {
	return p.ranker.Rank(ctx, enriched, pq, opts.Merge(pq))
}

// DiversifyResults removes duplicates and applies the per-file cap and
// pattern preference, truncating to the limit.
func (p *Processor) DiversifyResults(ctx context.Context, ranked []result.RankedResult, pq *query.ProcessedQuery, opts result.Options) ([]result.RankedResult, error) {
	pr, err := p.postrank.Process(ctx, ranked, diversifyOptions(opts.Merge(pq)))
	if err != nil {
		return nil, err
	}
	return pr.Results, nil
}

// GenerateExplanationsAndSuggestions explains ranked results using the
// detail level suggested for the query intent.
func (p *Processor) GenerateExplanationsAndSuggestions(ctx context.Context, ranked []result.RankedResult, pq *query.ProcessedQuery) []result.ExplainedResult {
	var opts explain.Options
	if pq != nil {
		opts.IncludeQualityMetrics = pq.Intent.SuggestedParameters.IncludeQualityMetrics
		opts.IncludeRelationships = pq.Intent.SuggestedParameters.IncludeRelationships
	}
	return p.explainer.Explain(ctx, ranked, pq, opts)
}

func diversifyOptions(opts result.Options) postrank.DiversifyOptions {
	return postrank.DiversifyOptions{
		Limit:                 opts.Limit,
		MaxResultsPerFile:     opts.MaxResultsPerFile,
		EnableDiversification: opts.Diversify(),
	}
}

func explainOptions(opts result.Options) explain.Options {
	return explain.Options{
		IncludeQualityMetrics: opts.IncludeQualityMetrics,
		IncludeRelationships:  opts.IncludeRelationships,
	}
}

func filterByQuality(raw []result.EnrichedResult, threshold float64) []result.EnrichedResult {
	if threshold <= 0 {
		return raw
	}
	kept := make([]result.EnrichedResult, 0, len(raw))
	for _, r := range raw {
		if r.Quality.OverallScore >= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// reduceExplanations keeps only the confidence factors of each explanation.
func reduceExplanations(explained []result.ExplainedResult) {
	for i := range explained {
		explained[i].Explanation = result.Explanation{
			KeyFeatures:       []string{},
			MatchedConcepts:   []string{},
			ConfidenceFactors: explained[i].Explanation.ConfidenceFactors,
		}
		explained[i].Suggestions = []result.Suggestion{}
		explained[i].Alternatives = []result.Alternative{}
	}
}

func averageQuality(ranked []result.RankedResult) float64 {
	if len(ranked) == 0 {
		return 0
	}
	var sum float64
	for i := range ranked {
		sum += ranked[i].Quality.OverallScore
	}
	return sum / float64(len(ranked))
}
