package explain

import (
	"fmt"
	"math"
	"sort"

	"github.com/ricesearch/rice-insight/internal/search/result"
)

// similarity blends content token overlap with symbol and pattern overlap.
func similarity(a, b profile) float64 {
	content := result.Jaccard(a.tokens, b.tokens)
	if len(a.structure) == 0 && len(b.structure) == 0 {
		return content
	}
	return contentWeight*content + structureWeight*result.Overlap(a.structure, b.structure)
}

// alternatives lists the other accepted results most similar to ranked[i].
func alternatives(i int, ranked []result.RankedResult, profiles []profile, threshold float64) []result.Alternative {
	out := []result.Alternative{}

	for j := range ranked {
		if j == i {
			continue
		}
		sim := similarity(profiles[i], profiles[j])
		if sim < threshold {
			continue
		}
		out = append(out, result.Alternative{
			ID:              ranked[j].ID,
			FilePath:        ranked[j].FilePath,
			SimilarityScore: sim,
			Differences:     differences(&ranked[i], &ranked[j]),
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].SimilarityScore != out[b].SimilarityScore {
			return out[a].SimilarityScore > out[b].SimilarityScore
		}
		return out[a].ID < out[b].ID
	})

	if len(out) > MaxAlternatives {
		out = out[:MaxAlternatives]
	}
	return out
}

// differences describes how alt differs from r.
func differences(r, alt *result.RankedResult) []string {
	diffs := []string{}

	if r.FileKey() != alt.FileKey() {
		diffs = append(diffs, "located in "+alt.FilePath)
	}
	if alt.Language != "" && alt.Language != r.Language {
		diffs = append(diffs, "written in "+alt.Language)
	}
	if delta := alt.Quality.OverallScore - r.Quality.OverallScore; math.Abs(delta) >= 0.1 {
		if delta > 0 {
			diffs = append(diffs, fmt.Sprintf("higher quality (%.2f)", alt.Quality.OverallScore))
		} else {
			diffs = append(diffs, fmt.Sprintf("lower quality (%.2f)", alt.Quality.OverallScore))
		}
	}
	if alt.Quality.HasTests != r.Quality.HasTests {
		if alt.Quality.HasTests {
			diffs = append(diffs, "has tests")
		} else {
			diffs = append(diffs, "has no tests")
		}
	}
	if alt.Enhanced.HasErrorHandling && !r.Enhanced.HasErrorHandling {
		diffs = append(diffs, "handles errors")
	}

	own := make(map[string]struct{}, len(r.Enhanced.DesignPatterns))
	for _, p := range r.Enhanced.DesignPatterns {
		own[p] = struct{}{}
	}
	extra := make(map[string]struct{})
	for _, p := range alt.Enhanced.DesignPatterns {
		if _, ok := own[p]; !ok {
			extra[p] = struct{}{}
		}
	}
	for _, p := range sortedKeys(extra) {
		diffs = append(diffs, "uses the "+p+" pattern")
	}

	if len(diffs) == 0 {
		if alt.CompositeScore > r.CompositeScore {
			diffs = append(diffs, "ranked higher")
		} else {
			diffs = append(diffs, "ranked lower")
		}
	}

	return diffs
}
