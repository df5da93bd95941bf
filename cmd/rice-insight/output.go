package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-insight/internal/index"
	"github.com/ricesearch/rice-insight/internal/metrics"
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search"
	"github.com/ricesearch/rice-insight/internal/search/postrank"
	"github.com/ricesearch/rice-insight/internal/search/result"
	"github.com/ricesearch/rice-insight/internal/store"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// printer renders command output as text or JSON.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(cmd *cobra.Command) *printer {
	format, _ := cmd.Flags().GetString("format")
	return &printer{w: cmd.OutOrStdout(), json: format == formatJSON}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) processedQuery(pq *query.ProcessedQuery) error {
	if p.json {
		return p.encode(pq)
	}

	p.printf("Query:      %s\n", pq.OriginalQuery)
	p.printf("Enhanced:   %s\n", pq.EnhancedQuery)
	p.printf("Intent:     %s (confidence %.2f)\n", pq.Intent.Primary, pq.Intent.Confidence)
	if len(pq.Intent.Secondary) > 0 {
		p.printf("Secondary:  %s\n", strings.Join(pq.Intent.Secondary, ", "))
	}
	if pq.Language != "" {
		p.printf("Language:   %s\n", pq.Language)
	}
	p.printf("Complexity: %.2f\n", pq.ComplexityScore)
	p.printf("Strategy:   %s mode, %s ranking, context %d, diversify %t\n",
		pq.Strategy.Mode, pq.Strategy.RankingStrategy, pq.Strategy.ContextRadius, pq.Strategy.Diversification)
	p.printFactors("Boosts", pq.Strategy.BoostFactors)
	p.printFactors("Penalties", pq.Strategy.PenaltyFactors)
	p.printf("Expects:    %s\n", strings.Join(pq.ExpectedResultTypes, ", "))
	if len(pq.Filters.Languages) > 0 {
		p.printf("Languages:  %s\n", strings.Join(pq.Filters.Languages, ", "))
	}
	p.printf("Tests:      %t\n", pq.Filters.IncludeTests)
	for _, w := range pq.Metadata.Warnings {
		p.printf("Warning:    %s\n", w)
	}
	if len(pq.SubQueries) > 0 {
		p.printf("\n")
		return p.subQueries(pq.SubQueries)
	}
	return nil
}

func (p *printer) printFactors(label string, factors []query.Factor) {
	if len(factors) == 0 {
		return
	}
	p.printf("%s:\n", label)
	for _, f := range factors {
		p.printf("  %-18s x%.2f  %s\n", f.Condition, f.Multiplier, f.Description)
	}
}

func (p *printer) validation(res query.ValidationResult) error {
	if p.json {
		return p.encode(res)
	}

	status := "valid"
	if !res.IsValid {
		status = "invalid"
	}
	p.printf("Query is %s (estimated quality %.2f)\n", status, res.EstimatedQuality)
	for _, issue := range res.Issues {
		p.printf("  [%s] %s: %s\n", issue.Severity, issue.Type, issue.Message)
	}
	for _, s := range res.Suggestions {
		p.printf("  hint: %s", s.Message)
		if s.Example != "" {
			p.printf(" (e.g. %q)", s.Example)
		}
		p.printf("\n")
	}
	return nil
}

func (p *printer) subQueries(subs []query.SubQuery) error {
	if p.json {
		return p.encode(subs)
	}

	if len(subs) == 0 {
		p.printf("Query is simple; no sub-queries.\n")
		return nil
	}
	p.printf("Sub-queries:\n")
	for i, s := range subs {
		p.printf("  %d. %s  [%s, %s priority]\n", i+1, s.Query, s.Intent.Primary, s.Priority)
		if len(s.Dependencies) > 0 {
			p.printf("     after: %s\n", strings.Join(s.Dependencies, "; "))
		}
	}
	return nil
}

func (p *printer) searchResponse(resp *search.Response, group bool) error {
	if p.json {
		if group {
			return p.encode(struct {
				Query    *query.ProcessedQuery  `json:"query"`
				Files    []postrank.FileGroup   `json:"files"`
				Stats    result.ProcessingStats `json:"stats"`
				Metadata search.SearchMetadata  `json:"metadata"`
			}{resp.Query, postrank.GroupByFile(resp.Results), resp.Stats, resp.Metadata})
		}
		return p.encode(resp)
	}

	pq := resp.Query
	p.printf("%s  [%s, confidence %.2f]\n", pq.OriginalQuery, pq.Intent.Primary, pq.Intent.Confidence)
	p.printf("%d results from %d candidates in %dms (diversity %.2f)\n\n",
		len(resp.Results), resp.Metadata.Candidates, resp.Metadata.SearchTimeMs, resp.Stats.DiversityScore)

	if !group {
		for i := range resp.Results {
			p.result(i+1, &resp.Results[i], "")
		}
		return nil
	}

	n := 0
	for _, g := range postrank.GroupByFile(resp.Results) {
		p.printf("%s  (best %.3f, %d results)\n", g.Path, g.BestScore, len(g.Results))
		for i := range g.Results {
			n++
			p.result(n, &g.Results[i], "  ")
		}
	}
	return nil
}

func (p *printer) result(n int, r *result.ExplainedResult, indent string) {
	p.printf("%s%d. %s:%d-%d  score %.3f  composite %.3f\n", indent, n, r.FilePath, r.StartLine, r.EndLine, r.Score, r.CompositeScore)
	if r.Explanation.WhyRelevant != "" {
		p.printf("%s   %s\n", indent, r.Explanation.WhyRelevant)
	}
	if len(r.Explanation.KeyFeatures) > 0 {
		p.printf("%s   features: %s\n", indent, strings.Join(r.Explanation.KeyFeatures, ", "))
	}
	factors := make([]string, 0, len(r.Explanation.ConfidenceFactors))
	for _, f := range r.Explanation.ConfidenceFactors {
		factors = append(factors, fmt.Sprintf("%s %.2f", f.Name, f.Score))
	}
	p.printf("%s   confidence: %s\n", indent, strings.Join(factors, ", "))
	for _, s := range r.Suggestions {
		p.printf("%s   suggestion (%s): %s\n", indent, s.Priority, s.Message)
	}
	for _, alt := range r.Alternatives {
		p.printf("%s   see also: %s (similarity %.2f)\n", indent, alt.FilePath, alt.SimilarityScore)
	}
	p.printf("\n")
}

func (p *printer) decomposed(resp *search.DecomposedResponse) error {
	if p.json {
		return p.encode(resp)
	}

	p.printf("%s  [%d sub-queries, %d failed, %dms]\n\n",
		resp.Query.OriginalQuery, resp.Stats.SubQueries, resp.Stats.Failed, resp.Stats.SearchTimeMs)
	for _, sq := range resp.SubQueries {
		switch {
		case sq.Error != "":
			p.printf("  - %s: failed: %s\n", sq.SubQuery.Query, sq.Error)
		default:
			p.printf("  - %s: %d results\n", sq.SubQuery.Query, len(sq.Response.Results))
		}
	}
	p.printf("\n")
	for i := range resp.Results {
		p.result(i+1, &resp.Results[i].ExplainedResult, "")
	}
	return nil
}

func (p *printer) batch(entries []batchEntry) error {
	if p.json {
		return p.encode(entries)
	}

	for _, e := range entries {
		if e.Error != "" {
			p.printf("✗ %s\n  %s (after %d attempts)\n", e.Query, e.Error, e.Attempts)
			continue
		}
		p.printf("✓ %s  [%s] %d results\n", e.Query, e.Response.Query.Intent.Primary, len(e.Response.Results))
		for i, r := range e.Response.Results {
			if i == 3 {
				p.printf("  ...\n")
				break
			}
			p.printf("  %s:%d-%d  %.3f\n", r.FilePath, r.StartLine, r.EndLine, r.CompositeScore)
		}
	}
	return nil
}

func (p *printer) indexResult(res *index.Result) error {
	if p.json {
		return p.encode(res)
	}

	p.printf("Indexed snapshot %s: %d files, %d chunks, %d skipped, %d failed in %s\n",
		res.SnapshotID, res.Files, res.Chunks, res.Skipped, res.Failed, res.Duration.Round(time.Millisecond))
	for _, e := range res.Errors {
		p.printf("  %s: %s\n", e.Path, e.Message)
	}
	return nil
}

func (p *printer) snapshots(snaps []store.Snapshot) error {
	if p.json {
		return p.encode(snaps)
	}

	if len(snaps) == 0 {
		p.printf("No snapshots.\n")
		return nil
	}
	for _, s := range snaps {
		p.printf("%-24s %6d files %7d chunks  %s\n", s.ID, s.Files, s.Chunks, s.IndexedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (p *printer) metrics(s metrics.Summary) error {
	if p.json {
		return p.encode(s)
	}

	p.printf("\nQueries:    %d\n", s.Queries)
	intents := make([]string, 0, len(s.QueriesByIntent))
	for intent := range s.QueriesByIntent {
		intents = append(intents, intent)
	}
	sort.Strings(intents)
	for _, intent := range intents {
		p.printf("  %-22s %d\n", intent, s.QueriesByIntent[intent])
	}
	p.printf("Complexity: %.2f avg\n", s.AvgComplexity)
	p.printf("Searches:   %d (%.1fms avg, %.1f results avg, diversity %.2f)\n",
		s.Searches, s.AvgSearchMs, s.AvgResults, s.AvgDiversity)
	return nil
}
