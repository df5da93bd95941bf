// Package fusion merges ranked result lists with weighted reciprocal rank fusion.
package fusion

import (
	"sort"

	"github.com/ricesearch/rice-insight/internal/search/result"
)

const (
	// DefaultK is the RRF smoothing constant.
	// Higher values reduce the impact of rank position differences.
	DefaultK = 60
)

// List is one ranked result list and its weight in the fused order.
type List struct {
	Name    string
	Weight  float64
	Results []result.ExplainedResult
}

// FusedResult is a result with its combined RRF score.
type FusedResult struct {
	result.ExplainedResult

	// Ranks maps list name to the 1-based rank the result held there.
	Ranks map[string]int `json:"ranks"`

	// FusedScore is the combined RRF score.
	FusedScore float64 `json:"fused_score"`
}

// Fuse combines ranked lists using weighted RRF.
//
// Formula: score = sum(weight_i / (k + rank_i))
//
// A result appearing in several lists keeps the copy with the highest
// composite score. Ties are broken by composite score and then ID, so the
// output is deterministic.
func Fuse(lists []List, k int) []FusedResult {
	if k <= 0 {
		k = DefaultK
	}

	scores := make(map[string]*FusedResult)
	for _, list := range lists {
		weight := list.Weight
		if weight <= 0 {
			weight = 1
		}

		for rank, r := range list.Results {
			fr := scores[r.ID]
			if fr == nil {
				fr = &FusedResult{ExplainedResult: r, Ranks: make(map[string]int)}
				scores[r.ID] = fr
			} else if r.CompositeScore > fr.CompositeScore {
				fr.ExplainedResult = r
			}
			if _, seen := fr.Ranks[list.Name]; !seen {
				fr.Ranks[list.Name] = rank + 1
				fr.FusedScore += weight / float64(k+rank+1)
			}
		}
	}

	results := make([]FusedResult, 0, len(scores))
	for _, fr := range scores {
		results = append(results, *fr)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FusedScore != results[j].FusedScore {
			return results[i].FusedScore > results[j].FusedScore
		}
		if results[i].CompositeScore != results[j].CompositeScore {
			return results[i].CompositeScore > results[j].CompositeScore
		}
		return results[i].ID < results[j].ID
	})

	return results
}

// Truncate keeps at most limit fused results in order. A positive
// maxPerFile also caps how many results any one file contributes.
func Truncate(fused []FusedResult, limit, maxPerFile int) []FusedResult {
	if limit <= 0 || limit > len(fused) {
		limit = len(fused)
	}

	out := make([]FusedResult, 0, limit)
	perFile := make(map[string]int)
	for _, fr := range fused {
		if len(out) == limit {
			break
		}
		if maxPerFile > 0 {
			key := fr.FileKey()
			if perFile[key] >= maxPerFile {
				continue
			}
			perFile[key]++
		}
		out = append(out, fr)
	}
	return out
}
