package postrank

import (
	"sort"

	"github.com/ricesearch/rice-insight/internal/search/result"
)

// FileGroup is a set of explained results from one file.
type FileGroup struct {
	SnapshotID   string                   `json:"snapshot_id"`
	Path         string                   `json:"path"`
	Results      []result.ExplainedResult `json:"results"`
	BestScore    float64                  `json:"best_score"`
	AverageScore float64                  `json:"average_score"`
}

// GroupByFile groups explained results by file. Groups are ordered by their
// best composite score; results inside a group keep their ranked order.
func GroupByFile(results []result.ExplainedResult) []FileGroup {
	if len(results) == 0 {
		return []FileGroup{}
	}

	index := make(map[string]int)
	var groups []FileGroup

	for _, r := range results {
		key := r.FileKey()
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, FileGroup{SnapshotID: r.SnapshotID, Path: r.FilePath})
		}
		g := &groups[pos]
		g.Results = append(g.Results, r)
		if r.CompositeScore > g.BestScore || len(g.Results) == 1 {
			g.BestScore = r.CompositeScore
		}
	}

	for i := range groups {
		var total float64
		for _, r := range groups[i].Results {
			total += r.CompositeScore
		}
		groups[i].AverageScore = total / float64(len(groups[i].Results))
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].BestScore > groups[j].BestScore
	})

	return groups
}
