// Package retrieval turns raw vector matches into a diversity-aware shortlist.
package retrieval

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// MinPrefilterScore is the floor below which candidates are never kept.
const MinPrefilterScore = 0.5

// Options control retrieval diversification.
type Options struct {
	// Limit is the number of candidates to return.
	Limit int

	// Threshold is the caller's similarity threshold. Candidates are kept
	// down to max(0.5, Threshold-0.2) for recall.
	Threshold float64
}

// Stats describe one diversification run.
type Stats struct {
	InputCount    int
	Prefiltered   int
	Duplicates    int
	FileGroups    int
	DiversePicks  int
	OutputCount   int
	DistinctFiles int
	LatencyMs     int64
}

// Diversifier selects candidates so that the best match of many files is
// represented before more matches from an already represented file.
type Diversifier struct {
	log *logger.Logger
}

// NewDiversifier creates a new retrieval diversifier.
func NewDiversifier(log *logger.Logger) *Diversifier {
	if log == nil {
		log = logger.Discard()
	}
	return &Diversifier{log: log.WithComponent("retrieval")}
}

// fileGroup is an ordered run of candidate indices for one file plus a cursor
// marking the next unused member.
type fileGroup struct {
	members []int
	next    int
}

func (g *fileGroup) exhausted() bool { return g.next >= len(g.members) }

// Diversify selects up to opts.Limit candidates. The first ceil(L/2) picks are
// the best candidate of distinct files; the rest are the best remaining
// candidates overall. The output is sorted by descending score.
func (d *Diversifier) Diversify(ctx context.Context, candidates []result.CandidateMatch, opts Options) []result.CandidateMatch {
	selected, stats := d.diversify(candidates, opts)

	d.log.WithContext(ctx).Debug("Retrieval diversification complete",
		"input", stats.InputCount,
		"prefiltered", stats.Prefiltered,
		"duplicates", stats.Duplicates,
		"file_groups", stats.FileGroups,
		"diverse_picks", stats.DiversePicks,
		"output", stats.OutputCount,
		"distinct_files", stats.DistinctFiles,
		"latency_ms", stats.LatencyMs,
	)

	return selected
}

func (d *Diversifier) diversify(candidates []result.CandidateMatch, opts Options) ([]result.CandidateMatch, Stats) {
	start := time.Now()
	stats := Stats{InputCount: len(candidates)}

	if len(candidates) == 0 || opts.Limit <= 0 {
		return []result.CandidateMatch{}, stats
	}

	floor := math.Max(MinPrefilterScore, opts.Threshold-0.2)
	kept := make([]int, 0, len(candidates))
	byID := make(map[string]int)
	for i, c := range candidates {
		if c.Score < floor {
			stats.Prefiltered++
			continue
		}
		if c.ID != "" {
			// Duplicate IDs keep the higher-scoring copy.
			if pos, dup := byID[c.ID]; dup {
				if c.Score > candidates[kept[pos]].Score {
					kept[pos] = i
				}
				stats.Duplicates++
				continue
			}
			byID[c.ID] = len(kept)
		}
		kept = append(kept, i)
	}

	// Group indices by file, keeping first-seen order for stability.
	groups := make(map[string]*fileGroup)
	var order []string
	for _, idx := range kept {
		key := candidates[idx].FileKey()
		g, ok := groups[key]
		if !ok {
			g = &fileGroup{}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, idx)
	}
	for _, key := range order {
		members := groups[key].members
		sort.SliceStable(members, func(i, j int) bool {
			return candidates[members[i]].Score > candidates[members[j]].Score
		})
	}
	sort.SliceStable(order, func(i, j int) bool {
		return candidates[groups[order[i]].members[0]].Score > candidates[groups[order[j]].members[0]].Score
	})
	stats.FileGroups = len(order)

	limit := opts.Limit
	diverseTarget := (limit + 1) / 2
	taken := make(map[int]bool, limit)
	selected := make([]int, 0, limit)

	// Phase A: one pick per file, best files first.
	for _, key := range order {
		if len(selected) >= diverseTarget {
			break
		}
		g := groups[key]
		idx := g.members[g.next]
		g.next++
		taken[idx] = true
		selected = append(selected, idx)
	}
	stats.DiversePicks = len(selected)

	// Phase B: best remaining candidates regardless of file.
	var remaining []int
	for _, key := range order {
		g := groups[key]
		if !g.exhausted() {
			remaining = append(remaining, g.members[g.next:]...)
		}
	}
	sort.SliceStable(remaining, func(i, j int) bool {
		return candidates[remaining[i]].Score > candidates[remaining[j]].Score
	})
	for _, idx := range remaining {
		if len(selected) >= limit {
			break
		}
		if taken[idx] {
			continue
		}
		taken[idx] = true
		selected = append(selected, idx)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return candidates[selected[i]].Score > candidates[selected[j]].Score
	})

	out := make([]result.CandidateMatch, len(selected))
	files := make(map[string]bool)
	for i, idx := range selected {
		out[i] = candidates[idx]
		files[out[i].FileKey()] = true
	}

	stats.OutputCount = len(out)
	stats.DistinctFiles = len(files)
	stats.LatencyMs = time.Since(start).Milliseconds()

	return out, stats
}
