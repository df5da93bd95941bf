package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

var refTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func enriched(id string, score float64) result.EnrichedResult {
	return result.EnrichedResult{
		CandidateMatch: result.CandidateMatch{ID: id, FilePath: id + ".go", SnapshotID: "s", Score: score, Language: "go"},
		Quality:        result.NeutralQuality(),
		Enhanced:       result.NeutralMetadata(),
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRank_StrategyBlends(t *testing.T) {
	r := enriched("a", 0.8)
	r.Quality.OverallScore = 1.0
	r.Quality.DocumentationRatio = 0.3
	r.Enhanced.UsageFrequency = 10
	r.Enhanced.LastModified = refTime.Add(-90 * 24 * time.Hour)

	tests := []struct {
		strategy string
		want     float64
	}{
		{query.RankRelevance, 0.8},
		{query.RankQuality, 0.7*0.8 + 0.3*1.0},
		{query.RankUsage, 0.7*0.8 + 0.3*0.5},
		{query.RankRecency, 0.7*0.8 + 0.3*math.Exp(-1)},
		{query.RankBalanced, 0.6*0.8 + 0.2*1.0 + 0.2*1.0},
	}

	rk := NewRanker(logger.New("error", "text"))
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			got := rk.Rank(context.Background(), []result.EnrichedResult{r}, nil,
				result.Options{RankingStrategy: tt.strategy, ReferenceTime: refTime})
			if !approx(got[0].CompositeScore, tt.want) {
				t.Errorf("CompositeScore = %v, want %v", got[0].CompositeScore, tt.want)
			}
		})
	}
}

func TestRank_StrategyFromQuery(t *testing.T) {
	r := enriched("a", 0.8)
	r.Quality.OverallScore = 0.0

	pq := &query.ProcessedQuery{Strategy: query.SearchStrategy{RankingStrategy: query.RankQuality}}
	got := NewRanker(nil).Rank(context.Background(), []result.EnrichedResult{r}, pq, result.Options{})
	if !approx(got[0].CompositeScore, 0.56) {
		t.Errorf("CompositeScore = %v, want 0.56", got[0].CompositeScore)
	}
}

func TestRank_BoostsAndPenalties(t *testing.T) {
	r := enriched("a", 0.5)
	r.Enhanced.HasErrorHandling = true
	r.Quality.CodeSmells = []string{"long_function"}

	pq := &query.ProcessedQuery{
		Language: "go",
		Strategy: query.SearchStrategy{
			RankingStrategy: query.RankRelevance,
			BoostFactors: []query.Factor{
				{Condition: query.CondHasErrorHandling, Multiplier: 1.3},
				{Condition: query.CondLanguageMatch, Multiplier: 1.1},
				{Condition: query.CondHasTests, Multiplier: 2.0},
				{Condition: "unknownCondition", Multiplier: 5.0},
			},
			PenaltyFactors: []query.Factor{
				{Condition: query.CondHasCodeSmells, Multiplier: 0.5},
			},
		},
	}

	got := NewRanker(logger.New("error", "text")).Rank(context.Background(), []result.EnrichedResult{r}, pq, result.Options{})
	want := 0.5 * 1.3 * 1.1 * 0.5
	if !approx(got[0].CompositeScore, want) {
		t.Errorf("CompositeScore = %v, want %v", got[0].CompositeScore, want)
	}

	wantApplied := []string{query.CondHasErrorHandling, query.CondLanguageMatch, "-" + query.CondHasCodeSmells}
	if !reflect.DeepEqual(got[0].AppliedFactors, wantApplied) {
		t.Errorf("AppliedFactors = %v, want %v", got[0].AppliedFactors, wantApplied)
	}
}

func TestRank_TieBreakByRecency(t *testing.T) {
	older := enriched("older", 0.82)
	older.Enhanced.LastModified = refTime.Add(-48 * time.Hour)
	newer := enriched("newer", 0.80)
	newer.Enhanced.LastModified = refTime.Add(-time.Hour)
	far := enriched("far", 0.70)
	far.Enhanced.LastModified = refTime

	got := NewRanker(nil).Rank(context.Background(), []result.EnrichedResult{older, far, newer}, nil, result.Options{ReferenceTime: refTime})

	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	want := []string{"newer", "older", "far"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestRank_EqualScoresOrderedByID(t *testing.T) {
	got := NewRanker(nil).Rank(context.Background(),
		[]result.EnrichedResult{enriched("c", 0.5), enriched("a", 0.5), enriched("b", 0.5)}, nil, result.Options{})

	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("order = %v, want [a b c]", ids)
	}
}

func TestRank_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var input []result.EnrichedResult
	for i := 0; i < 60; i++ {
		r := enriched(fmt.Sprintf("r%02d", i), 0.5+rng.Float64()/2)
		r.Quality.OverallScore = rng.Float64()
		r.Enhanced.UsageFrequency = rng.Intn(30)
		r.Enhanced.LastModified = refTime.Add(-time.Duration(rng.Intn(500)) * time.Hour)
		r.Enhanced.HasErrorHandling = rng.Intn(2) == 0
		input = append(input, r)
	}

	pq := &query.ProcessedQuery{Strategy: query.DeriveStrategy(query.ClassifyIntent("debug login issue", nil), nil)}
	rk := NewRanker(logger.New("error", "text"))

	for _, strategy := range []string{query.RankRelevance, query.RankQuality, query.RankRecency, query.RankUsage, query.RankBalanced} {
		opts := result.Options{RankingStrategy: strategy, ReferenceTime: refTime}
		first := rk.Rank(context.Background(), input, pq, opts)
		for run := 0; run < 10; run++ {
			again := rk.Rank(context.Background(), input, pq, opts)
			for i := range first {
				if first[i].ID != again[i].ID {
					t.Fatalf("%s: run %d differs at position %d", strategy, run, i)
				}
			}
		}
	}
}

func TestRank_NearTieChainIsRepeatable(t *testing.T) {
	a := enriched("a", 0.80)
	a.Enhanced.LastModified = refTime.Add(-72 * time.Hour)
	b := enriched("b", 0.77)
	b.Enhanced.LastModified = refTime.Add(-24 * time.Hour)
	c := enriched("c", 0.74)
	c.Enhanced.LastModified = refTime

	opts := result.Options{RankingStrategy: query.RankRelevance, ReferenceTime: refTime}
	rk := NewRanker(nil)
	for _, input := range [][]result.EnrichedResult{{a, b, c}, {c, b, a}, {b, a, c}} {
		first := rk.Rank(context.Background(), input, nil, opts)
		for run := 0; run < 5; run++ {
			again := rk.Rank(context.Background(), input, nil, opts)
			for i := range first {
				if first[i].ID != again[i].ID {
					t.Fatalf("input %s%s%s: run %d differs at position %d", input[0].ID, input[1].ID, input[2].ID, run, i)
				}
			}
		}
	}
}

func TestRank_Empty(t *testing.T) {
	got := NewRanker(nil).Rank(context.Background(), nil, nil, result.Options{})
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestEvaluate(t *testing.T) {
	r := enriched("a", 0.5)
	r.FilePath = "pkg/auth/login_test.go"
	r.Quality.OverallScore = 0.85
	r.Quality.DocumentationRatio = 0

	pq := &query.ProcessedQuery{Language: "go"}

	tests := []struct {
		cond string
		want bool
	}{
		{query.CondIsTestFile, true},
		{query.CondHighQualityScore, true},
		{query.CondNoDocumentation, true},
		{query.CondHasDocumentation, false},
		{query.CondLanguageMatch, true},
		{query.CondHasUsages, false},
		{query.CondHighComplexity, false},
		{"nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			if got := Evaluate(tt.cond, &r, pq); got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestRecencyDecay(t *testing.T) {
	if got := recencyDecay(refTime, refTime); got != 1 {
		t.Errorf("decay at reference = %v, want 1", got)
	}
	if got := recencyDecay(time.Time{}, refTime); got != unknownAgeDecay {
		t.Errorf("decay for unknown age = %v, want %v", got, unknownAgeDecay)
	}
	if got := recencyDecay(refTime.Add(time.Hour), refTime); got != 1 {
		t.Errorf("future modification should not exceed 1, got %v", got)
	}
	if recencyDecay(refTime.Add(-24*time.Hour), refTime) <= recencyDecay(refTime.Add(-48*time.Hour), refTime) {
		t.Error("decay must be monotonic in age")
	}
}
