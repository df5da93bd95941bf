package result

import (
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/query"
)

// Defaults for pipeline options.
const (
	DefaultLimit               = 10
	DefaultMaxResultsPerFile   = 3
	DefaultSimilarityThreshold = 0.5
)

// FilterCriteria drops results before ranking.
type FilterCriteria struct {
	// QualityThreshold is the minimum overall quality score (0 disables).
	QualityThreshold float64 `json:"quality_threshold" yaml:"quality_threshold"`
}

// Options control result processing.
type Options struct {
	SearchMode            string         `json:"search_mode" yaml:"search_mode"`
	RankingStrategy       string         `json:"ranking_strategy" yaml:"ranking_strategy"`
	FilterCriteria        FilterCriteria `json:"filter_criteria" yaml:"filter_criteria"`
	Limit                 int            `json:"limit" yaml:"limit"`
	EnableDiversification *bool          `json:"enable_diversification,omitempty" yaml:"enable_diversification"`
	MaxResultsPerFile     int            `json:"max_results_per_file" yaml:"max_results_per_file"`
	IncludeExplanations   bool           `json:"include_explanations" yaml:"include_explanations"`
	IncludeRelationships  bool           `json:"include_relationships" yaml:"include_relationships"`
	IncludeQualityMetrics bool           `json:"include_quality_metrics" yaml:"include_quality_metrics"`
	ContextRadius         int            `json:"context_radius" yaml:"context_radius"`

	// SimilarityThreshold is the retrieval score threshold.
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// ReferenceTime anchors recency scoring. Zero means the newest result.
	ReferenceTime time.Time `json:"reference_time,omitempty" yaml:"-"`
}

// DefaultOptions returns the default pipeline options.
func DefaultOptions() Options {
	return Options{
		Limit:               DefaultLimit,
		MaxResultsPerFile:   DefaultMaxResultsPerFile,
		IncludeExplanations: true,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Validate checks options for malformed values.
func (o Options) Validate() error {
	if o.Limit < 0 {
		return errors.ValidationError("limit must not be negative")
	}
	if o.MaxResultsPerFile < 0 {
		return errors.ValidationError("max_results_per_file must not be negative")
	}
	if o.FilterCriteria.QualityThreshold < 0 || o.FilterCriteria.QualityThreshold > 1 {
		return errors.ValidationError("quality_threshold must be within [0,1]")
	}
	if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
		return errors.ValidationError("similarity_threshold must be within [0,1]")
	}
	if o.ContextRadius < 0 {
		return errors.ValidationError("context_radius must not be negative")
	}
	switch o.RankingStrategy {
	case "", query.RankRelevance, query.RankQuality, query.RankRecency, query.RankUsage, query.RankBalanced:
	default:
		return errors.ValidationError("unknown ranking strategy").WithDetail("ranking_strategy", o.RankingStrategy)
	}
	switch o.SearchMode {
	case "", query.ModeSemantic, query.ModeHybrid, query.ModeStructural:
	default:
		return errors.ValidationError("unknown search mode").WithDetail("search_mode", o.SearchMode)
	}
	return nil
}

// Bool returns a pointer to v, for optional option fields.
func Bool(v bool) *bool {
	return &v
}

// Diversify reports whether diversification is on. Unset means on.
func (o Options) Diversify() bool {
	return o.EnableDiversification == nil || *o.EnableDiversification
}

// Merge fills unset options from a processed query. An explicit
// EnableDiversification wins; otherwise the query strategy decides.
func (o Options) Merge(pq *query.ProcessedQuery) Options {
	merged := o
	if merged.Limit == 0 {
		merged.Limit = DefaultLimit
	}
	if merged.MaxResultsPerFile == 0 {
		merged.MaxResultsPerFile = DefaultMaxResultsPerFile
	}
	if pq == nil {
		if merged.EnableDiversification == nil {
			merged.EnableDiversification = Bool(true)
		}
		return merged
	}

	strategy := pq.Strategy
	if merged.SearchMode == "" {
		merged.SearchMode = strategy.Mode
	}
	if merged.RankingStrategy == "" {
		merged.RankingStrategy = strategy.RankingStrategy
	}
	if merged.ContextRadius == 0 {
		merged.ContextRadius = strategy.ContextRadius
	}
	if merged.FilterCriteria.QualityThreshold == 0 {
		merged.FilterCriteria.QualityThreshold = pq.Filters.MinQuality
	}
	if merged.EnableDiversification == nil {
		merged.EnableDiversification = Bool(strategy.Diversification)
	}
	merged.IncludeQualityMetrics = merged.IncludeQualityMetrics || pq.Intent.SuggestedParameters.IncludeQualityMetrics
	merged.IncludeRelationships = merged.IncludeRelationships || pq.Intent.SuggestedParameters.IncludeRelationships

	return merged
}
