package explain

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

func rankedResult(id, filePath, content string) result.RankedResult {
	return result.RankedResult{
		EnrichedResult: result.EnrichedResult{
			CandidateMatch: result.CandidateMatch{ID: id, FilePath: filePath, SnapshotID: "s", Score: 0.8, Language: "go"},
			Content:        content,
			Quality:        result.NeutralQuality(),
			Enhanced:       result.NeutralMetadata(),
		},
		CompositeScore: 0.8,
	}
}

func processed(text string, intent query.Intent) *query.ProcessedQuery {
	return &query.ProcessedQuery{
		OriginalQuery: text,
		Intent:        query.QueryIntent{Primary: intent, Confidence: 0.8},
	}
}

func TestExplain_Empty(t *testing.T) {
	s := NewSynthesizer(logger.New("error", "text"))
	got := s.Explain(context.Background(), nil, nil, Options{})
	if got == nil || len(got) != 0 {
		t.Errorf("Explain(nil) = %v, want empty non-nil slice", got)
	}
}

func TestExplain_AlwaysHasConfidenceFactor(t *testing.T) {
	s := NewSynthesizer(nil)
	input := []result.RankedResult{rankedResult("a", "a.go", "")}

	got := s.Explain(context.Background(), input, nil, Options{})
	factors := got[0].Explanation.ConfidenceFactors
	if len(factors) == 0 || factors[0].Name != "similarity" {
		t.Fatalf("ConfidenceFactors = %+v, want a leading similarity factor", factors)
	}
	if got[0].Suggestions == nil || got[0].Alternatives == nil {
		t.Error("suggestions and alternatives must be non-nil")
	}
}

func TestExplain_QualityFactorOnlyWhenRequested(t *testing.T) {
	s := NewSynthesizer(nil)
	input := []result.RankedResult{rankedResult("a", "a.go", "func a() {}")}
	pq := processed("parse config", query.IntentFindImplementation)

	hasQuality := func(opts Options) bool {
		got := s.Explain(context.Background(), input, pq, opts)
		for _, f := range got[0].Explanation.ConfidenceFactors {
			if f.Name == "quality" {
				return true
			}
		}
		return false
	}

	if hasQuality(Options{}) {
		t.Error("quality factor present without IncludeQualityMetrics")
	}
	if !hasQuality(Options{IncludeQualityMetrics: true}) {
		t.Error("quality factor missing with IncludeQualityMetrics")
	}
}

func TestWhyRelevant_ByIntent(t *testing.T) {
	r := rankedResult("a", "internal/auth/login.go", "")
	r.Enhanced.HasErrorHandling = true
	r.Enhanced.DesignPatterns = []string{"factory"}

	tests := []struct {
		intent query.Intent
		want   string
	}{
		{query.IntentDebugIssue, "error handling"},
		{query.IntentFindExamples, "example"},
		{query.IntentAnalyzeQuality, "quality analysis"},
		{query.IntentFindPatterns, "factory pattern"},
		{query.IntentFindUsage, "used"},
		{query.IntentUnderstandBehavior, "behavior"},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			got := whyRelevant(tt.intent, &r, []string{"login"})
			if !strings.Contains(got, tt.want) {
				t.Errorf("whyRelevant(%s) = %q, want it to mention %q", tt.intent, got, tt.want)
			}
			if !strings.Contains(got, "login") {
				t.Errorf("whyRelevant(%s) = %q, want it to name the matched concept", tt.intent, got)
			}
		})
	}
}

func TestWhyRelevant_FallsBackToSymbolAndFile(t *testing.T) {
	r := rankedResult("a", "pkg/store/redis.go", "")
	if got := whyRelevant(query.IntentFindImplementation, &r, nil); !strings.Contains(got, "redis.go") {
		t.Errorf("got %q, want file name", got)
	}

	r.Symbols = []string{"NewRedisStore"}
	if got := whyRelevant(query.IntentFindImplementation, &r, nil); !strings.Contains(got, "NewRedisStore") {
		t.Errorf("got %q, want first symbol", got)
	}
}

func TestMatchConcepts(t *testing.T) {
	r := rankedResult("a", "internal/web/router.go", "func serve(w http.ResponseWriter) { login(w); route(w) }")
	r.Symbols = []string{"validateToken"}
	p := newProfile(&r)

	tests := []struct {
		query string
		want  []string
	}{
		{"authentication routes", []string{"authentication", "routes"}},
		{"token validation", []string{"token"}},
		{"kafka consumer", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := matchConcepts(queryTerms(processed(tt.query, query.IntentFindImplementation)), p)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("matchConcepts(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestQueryTerms_IncludesAddedTerms(t *testing.T) {
	pq := processed("parseConfig", query.IntentFindImplementation)
	pq.Metadata.AddedTerms = []string{"go", "implementation"}

	got := fmt.Sprint(queryTerms(pq))
	for _, want := range []string{"parseconfig", "parse", "config", "go", "implementation"} {
		if !strings.Contains(got, want) {
			t.Errorf("queryTerms = %s, missing %q", got, want)
		}
	}
	if queryTerms(nil) != nil {
		t.Error("queryTerms(nil) should be nil")
	}
}

func TestSuggestions_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		intent query.Intent
		modify func(r *result.RankedResult)
		want   []string
	}{
		{"neutral data", query.IntentFindImplementation, func(r *result.RankedResult) {}, []string{}},
		{"low readability", query.IntentFindImplementation, func(r *result.RankedResult) { r.Quality.ReadabilityScore = 0.59 }, []string{result.SuggestionImprovement}},
		{"low documentation", query.IntentFindImplementation, func(r *result.RankedResult) { r.Quality.DocumentationRatio = 0.05 }, []string{result.SuggestionDocumentation}},
		{"examples", query.IntentFindExamples, func(r *result.RankedResult) {}, []string{result.SuggestionUsage}},
		{"quality untested", query.IntentAnalyzeQuality, func(r *result.RankedResult) {}, []string{result.SuggestionTesting}},
		{"quality tested", query.IntentAnalyzeQuality, func(r *result.RankedResult) { r.Quality.HasTests = true }, []string{}},
		{"quality smells", query.IntentAnalyzeQuality, func(r *result.RankedResult) {
			r.Quality.HasTests = true
			r.Quality.CodeSmells = []string{"long_function"}
		}, []string{result.SuggestionImprovement}},
		{"debug without logging", query.IntentDebugIssue, func(r *result.RankedResult) {}, []string{result.SuggestionImprovement}},
		{"debug with logging", query.IntentDebugIssue, func(r *result.RankedResult) { r.Enhanced.HasLogging = true }, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rankedResult("a", "a.go", "")
			tt.modify(&r)

			got := suggestions(tt.intent, &r)
			if got == nil {
				t.Fatal("suggestions returned nil")
			}
			types := make([]string, len(got))
			for i, s := range got {
				types[i] = s.Type
			}
			if fmt.Sprint(types) != fmt.Sprint(tt.want) {
				t.Errorf("suggestion types = %v, want %v", types, tt.want)
			}
		})
	}
}

func TestAlternatives(t *testing.T) {
	body := "func parseConfig(path string) error { return load(path) }"
	input := []result.RankedResult{
		rankedResult("a", "a.go", body),
		rankedResult("b", "b.go", body),
		rankedResult("c", "c.go", "select rows from users table"),
	}
	input[1].Quality.OverallScore = 0.9
	input[1].Quality.HasTests = true

	got := NewSynthesizer(nil).Explain(context.Background(), input, nil, Options{})

	alts := got[0].Alternatives
	if len(alts) != 1 || alts[0].ID != "b" {
		t.Fatalf("alternatives of a = %+v, want only b", alts)
	}
	if alts[0].SimilarityScore != 1.0 {
		t.Errorf("SimilarityScore = %v, want 1.0", alts[0].SimilarityScore)
	}
	diffs := fmt.Sprint(alts[0].Differences)
	for _, want := range []string{"located in b.go", "higher quality", "has tests"} {
		if !strings.Contains(diffs, want) {
			t.Errorf("Differences = %s, missing %q", diffs, want)
		}
	}

	if len(got[2].Alternatives) != 0 {
		t.Errorf("alternatives of c = %+v, want none", got[2].Alternatives)
	}
}

func TestAlternatives_CappedAndOrdered(t *testing.T) {
	body := "func handle(req Request) Response { return serve(req) }"
	var input []result.RankedResult
	for _, id := range []string{"a", "e", "d", "c", "b"} {
		input = append(input, rankedResult(id, id+".go", body))
	}

	got := alternatives(0, input, profilesOf(input), DefaultAltSimilarity)
	var ids []string
	for _, alt := range got {
		ids = append(ids, alt.ID)
	}
	if fmt.Sprint(ids) != "[b c d]" {
		t.Errorf("alternatives = %v, want [b c d]", ids)
	}
}

func profilesOf(ranked []result.RankedResult) []profile {
	out := make([]profile, len(ranked))
	for i := range ranked {
		out[i] = newProfile(&ranked[i])
	}
	return out
}
