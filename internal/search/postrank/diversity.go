package postrank

import (
	"context"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// DefaultLookAhead is how far past the next admissible result the
// diversifier looks for one introducing an unseen design pattern.
const DefaultLookAhead = 3

// DiversityService caps results per file and favours pattern variety.
type DiversityService struct {
	lookAhead int
	log       *logger.Logger
}

// NewDiversityService creates a new diversity service.
func NewDiversityService(lookAhead int, log *logger.Logger) *DiversityService {
	if lookAhead <= 0 {
		lookAhead = DefaultLookAhead
	}
	return &DiversityService{
		lookAhead: lookAhead,
		log:       log,
	}
}

// DiversifyOptions control final selection.
type DiversifyOptions struct {
	Limit                 int
	MaxResultsPerFile     int
	EnableDiversification bool
}

// DiversityResult contains diversity statistics.
type DiversityResult struct {
	Enabled         bool
	DiversityScore  float64
	CappedByFile    int
	PatternsCovered int
	LatencyMs       int64
}

// Diversify selects up to opts.Limit results. When diversification is
// disabled it returns the top results unchanged. Otherwise it walks the ranked
// list admitting a result only while its file is below the per-file cap, and
// within a small window prefers a result that adds a design pattern not yet
// represented.
func (s *DiversityService) Diversify(ctx context.Context, ranked []result.RankedResult, opts DiversifyOptions) ([]result.RankedResult, DiversityResult) {
	start := time.Now()

	limit := opts.Limit
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}

	if !opts.EnableDiversification {
		out := append([]result.RankedResult{}, ranked[:limit]...)
		return out, DiversityResult{
			Enabled:        false,
			DiversityScore: EstimateDiversity(out),
			LatencyMs:      time.Since(start).Milliseconds(),
		}
	}

	maxPerFile := opts.MaxResultsPerFile
	if maxPerFile <= 0 {
		maxPerFile = result.DefaultMaxResultsPerFile
	}

	perFile := make(map[string]int)
	patterns := make(map[string]bool)
	accepted := make([]result.RankedResult, 0, limit)
	capped := 0

	remaining := make([]int, len(ranked))
	for i := range remaining {
		remaining[i] = i
	}

	for len(accepted) < limit && len(remaining) > 0 {
		// Drop results whose file is already full; counts only grow.
		window := make([]int, 0, s.lookAhead)
		kept := remaining[:0]
		for _, idx := range remaining {
			if perFile[ranked[idx].FileKey()] >= maxPerFile {
				capped++
				continue
			}
			kept = append(kept, idx)
			if len(window) < s.lookAhead {
				window = append(window, len(kept)-1)
			}
		}
		remaining = kept
		if len(window) == 0 {
			break
		}

		choice := window[0]
		if !introducesPattern(&ranked[remaining[choice]], patterns) {
			for _, pos := range window[1:] {
				if introducesPattern(&ranked[remaining[pos]], patterns) {
					choice = pos
					break
				}
			}
		}

		r := ranked[remaining[choice]]
		accepted = append(accepted, r)
		perFile[r.FileKey()]++
		for _, p := range r.Enhanced.DesignPatterns {
			patterns[p] = true
		}
		remaining = append(remaining[:choice], remaining[choice+1:]...)
	}

	stats := DiversityResult{
		Enabled:         true,
		DiversityScore:  EstimateDiversity(accepted),
		CappedByFile:    capped,
		PatternsCovered: len(patterns),
		LatencyMs:       time.Since(start).Milliseconds(),
	}

	if s.log != nil {
		s.log.WithContext(ctx).Debug("Post-rank diversity complete",
			"input", len(ranked),
			"output", len(accepted),
			"capped_by_file", stats.CappedByFile,
			"patterns", stats.PatternsCovered,
			"diversity", stats.DiversityScore,
		)
	}

	return accepted, stats
}

func introducesPattern(r *result.RankedResult, seen map[string]bool) bool {
	for _, p := range r.Enhanced.DesignPatterns {
		if !seen[p] {
			return true
		}
	}
	return false
}

// EstimateDiversity is the share of distinct files in a result set:
// 1 when every result comes from a different file, 0 for an empty set.
func EstimateDiversity(results []result.RankedResult) float64 {
	if len(results) == 0 {
		return 0
	}
	files := make(map[string]struct{}, len(results))
	for i := range results {
		files[results[i].FileKey()] = struct{}{}
	}
	return float64(len(files)) / float64(len(results))
}
