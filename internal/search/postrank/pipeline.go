package postrank

import (
	"context"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// Pipeline orchestrates all post-ranking operations.
type Pipeline struct {
	dedup     *DedupService
	diversity *DiversityService
	config    Config
	log       *logger.Logger
}

// Config holds post-ranking configuration.
type Config struct {
	// EnableDedup enables removal of repeated and near-identical results.
	EnableDedup bool

	// DedupThreshold is the content similarity treated as a duplicate (0-1).
	DedupThreshold float64

	// LookAhead bounds the window searched for unseen design patterns.
	LookAhead int
}

// DefaultConfig returns default post-ranking configuration.
func DefaultConfig() Config {
	return Config{
		EnableDedup:    true,
		DedupThreshold: DefaultDedupThreshold,
		LookAhead:      DefaultLookAhead,
	}
}

// PostRankResult contains the results and statistics from post-ranking.
type PostRankResult struct {
	Results      []result.RankedResult
	Dedup        DedupResult
	Diversity    DiversityResult
	TotalLatency int64
}

// NewPipeline creates a new post-ranking pipeline.
func NewPipeline(config Config, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithComponent("postrank")
	return &Pipeline{
		dedup:     NewDedupService(config.DedupThreshold, log),
		diversity: NewDiversityService(config.LookAhead, log),
		config:    config,
		log:       log,
	}
}

// Process applies the configured post-ranking operations in order:
// 1. Deduplication (removes repeated and near-identical results)
// 2. Diversity (per-file cap with pattern look-ahead, truncated to the limit)
//
// With diversification disabled both steps are skipped and the top results
// come back unchanged.
func (p *Pipeline) Process(ctx context.Context, ranked []result.RankedResult, opts DiversifyOptions) (*PostRankResult, error) {
	start := time.Now()

	if len(ranked) == 0 {
		return &PostRankResult{Results: []result.RankedResult{}}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pr := &PostRankResult{Results: ranked}

	if p.config.EnableDedup && opts.EnableDiversification {
		deduped, stats := p.dedup.Deduplicate(ctx, pr.Results)
		pr.Results = deduped
		pr.Dedup = stats

		p.log.Debug("Post-rank deduplication complete",
			"input", stats.InputCount,
			"output", stats.OutputCount,
			"removed", stats.Removed,
			"latency_ms", stats.LatencyMs,
		)
	} else {
		pr.Dedup = DedupResult{
			InputCount:  len(ranked),
			OutputCount: len(ranked),
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diverse, stats := p.diversity.Diversify(ctx, pr.Results, opts)
	pr.Results = diverse
	pr.Diversity = stats
	pr.TotalLatency = time.Since(start).Milliseconds()

	return pr, nil
}
