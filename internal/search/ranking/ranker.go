// Package ranking computes composite scores for enriched results.
package ranking

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// Blend weights and constants per ranking strategy.
const (
	// TieThreshold is the score gap below which recency decides the order.
	TieThreshold = 0.05

	blendBase         = 0.7
	blendSignal       = 0.3
	balancedBase      = 0.6
	balancedQuality   = 0.2
	balancedDocs      = 0.2
	recencyDecayDays  = 90.0
	usageSaturation   = 10.0
	docRatioSaturated = 0.3
	unknownAgeDecay   = 0.5
)

// Stats describe one ranking run.
type Stats struct {
	Strategy         string
	InputCount       int
	BoostsApplied    int
	PenaltiesApplied int
	LatencyMs        int64
}

// Ranker scores and orders results. It keeps no state between calls.
type Ranker struct {
	log *logger.Logger
}

// NewRanker creates a new ranker.
func NewRanker(log *logger.Logger) *Ranker {
	if log == nil {
		log = logger.Discard()
	}
	return &Ranker{log: log.WithComponent("ranking")}
}

// Rank computes the composite score of each result and sorts descending.
// Scores within TieThreshold of each other are ordered by most recent
// modification, then by score, then by ID.
func (rk *Ranker) Rank(ctx context.Context, results []result.EnrichedResult, pq *query.ProcessedQuery, opts result.Options) []result.RankedResult {
	start := time.Now()

	strategy := opts.RankingStrategy
	if strategy == "" && pq != nil {
		strategy = pq.Strategy.RankingStrategy
	}
	if strategy == "" {
		strategy = query.RankRelevance
	}

	ref := opts.ReferenceTime
	if ref.IsZero() {
		ref = latestModification(results)
	}

	var boosts, penalties []query.Factor
	if pq != nil {
		boosts = pq.Strategy.BoostFactors
		penalties = pq.Strategy.PenaltyFactors
	}

	stats := Stats{Strategy: strategy, InputCount: len(results)}
	ranked := make([]result.RankedResult, len(results))

	for i := range results {
		r := &results[i]
		score := blend(strategy, r, ref)

		var applied []string
		for _, f := range boosts {
			if Evaluate(f.Condition, r, pq) {
				score *= f.Multiplier
				applied = append(applied, f.Condition)
				stats.BoostsApplied++
			}
		}
		for _, f := range penalties {
			if Evaluate(f.Condition, r, pq) {
				score *= f.Multiplier
				applied = append(applied, "-"+f.Condition)
				stats.PenaltiesApplied++
			}
		}

		ranked[i] = result.RankedResult{
			EnrichedResult: *r,
			CompositeScore: score,
			AppliedFactors: applied,
		}
	}

	SortRanked(ranked)
	stats.LatencyMs = time.Since(start).Milliseconds()

	rk.log.WithContext(ctx).Debug("Ranking complete",
		"strategy", stats.Strategy,
		"input", stats.InputCount,
		"boosts", stats.BoostsApplied,
		"penalties", stats.PenaltiesApplied,
		"latency_ms", stats.LatencyMs,
	)

	return ranked
}

// SortRanked orders results by composite score with the recency tie-break.
// The tie window is not transitive: with a≈b and b≈c but a and c apart,
// the outcome depends on input order. The sort is stable, so identical input
// always yields identical output.
func SortRanked(ranked []result.RankedResult) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(&ranked[i], &ranked[j])
	})
}

func less(a, b *result.RankedResult) bool {
	if math.Abs(a.CompositeScore-b.CompositeScore) >= TieThreshold {
		return a.CompositeScore > b.CompositeScore
	}
	ta, tb := a.Enhanced.LastModified, b.Enhanced.LastModified
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	if a.CompositeScore != b.CompositeScore {
		return a.CompositeScore > b.CompositeScore
	}
	return a.ID < b.ID
}

// blend applies the ranking strategy to the raw similarity score.
func blend(strategy string, r *result.EnrichedResult, ref time.Time) float64 {
	base := r.Score

	switch strategy {
	case query.RankQuality:
		return blendBase*base + blendSignal*clamp01(r.Quality.OverallScore)
	case query.RankRecency:
		return blendBase*base + blendSignal*recencyDecay(r.Enhanced.LastModified, ref)
	case query.RankUsage:
		freq := math.Max(0, float64(r.Enhanced.UsageFrequency))
		return blendBase*base + blendSignal*(freq/(freq+usageSaturation))
	case query.RankBalanced:
		docs := math.Min(clamp01(r.Quality.DocumentationRatio)/docRatioSaturated, 1)
		return balancedBase*base + balancedQuality*clamp01(r.Quality.OverallScore) + balancedDocs*docs
	default:
		return base
	}
}

// recencyDecay is 1 for code modified at ref and decays exponentially with age.
func recencyDecay(modified, ref time.Time) float64 {
	if modified.IsZero() || ref.IsZero() {
		return unknownAgeDecay
	}
	ageDays := ref.Sub(modified).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / recencyDecayDays)
}

func latestModification(results []result.EnrichedResult) time.Time {
	var latest time.Time
	for i := range results {
		if t := results[i].Enhanced.LastModified; t.After(latest) {
			latest = t
		}
	}
	return latest
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
