// Package postrank provides post-ranking operations for search results.
package postrank

import (
	"context"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// DefaultDedupThreshold is the content similarity at which a lower-ranked
// result counts as a duplicate.
const DefaultDedupThreshold = 0.9

// DedupService removes repeated and near-identical results.
type DedupService struct {
	threshold float64
	log       *logger.Logger
}

// NewDedupService creates a new deduplication service.
func NewDedupService(threshold float64, log *logger.Logger) *DedupService {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDedupThreshold
	}
	return &DedupService{
		threshold: threshold,
		log:       log,
	}
}

// DedupResult contains deduplication statistics.
type DedupResult struct {
	InputCount  int
	OutputCount int
	Removed     int
	LatencyMs   int64
}

// Deduplicate keeps the first of any results sharing an ID or whose content
// token similarity reaches the threshold. Input order is preserved.
func (s *DedupService) Deduplicate(ctx context.Context, ranked []result.RankedResult) ([]result.RankedResult, DedupResult) {
	start := time.Now()

	if len(ranked) == 0 {
		return []result.RankedResult{}, DedupResult{}
	}

	kept := make([]result.RankedResult, 0, len(ranked))
	keptTokens := make([]result.TokenSet, 0, len(ranked))
	seenIDs := make(map[string]bool, len(ranked))

	for i := range ranked {
		r := &ranked[i]
		if r.ID != "" && seenIDs[r.ID] {
			continue
		}

		tokens := result.TokensOf(&r.EnrichedResult)
		duplicate := false
		if len(tokens) > 0 {
			for j, other := range keptTokens {
				if sim := result.Jaccard(tokens, other); sim >= s.threshold {
					duplicate = true
					if s.log != nil {
						s.log.Debug("Removing duplicate result",
							"id", r.ID,
							"similar_to", kept[j].ID,
							"similarity", sim,
							"threshold", s.threshold,
						)
					}
					break
				}
			}
		}
		if duplicate {
			continue
		}

		seenIDs[r.ID] = true
		kept = append(kept, *r)
		keptTokens = append(keptTokens, tokens)
	}

	return kept, DedupResult{
		InputCount:  len(ranked),
		OutputCount: len(kept),
		Removed:     len(ranked) - len(kept),
		LatencyMs:   time.Since(start).Milliseconds(),
	}
}
