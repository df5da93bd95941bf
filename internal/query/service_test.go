package query

import (
	"context"
	"sync"
	"testing"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

func TestServiceProcessQuery(t *testing.T) {
	service := NewService(logger.New("error", "text"))
	ctx := context.Background()

	qctx := &Context{
		Language: "go",
		Workspace: &WorkspaceContext{
			ProjectName: "payments",
			Languages:   []string{"golang"},
			SnapshotIDs: []string{"snap-1"},
		},
	}

	pq, err := service.ProcessQuery(ctx, "  show me examples of authentication  ", qctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pq.OriginalQuery != "show me examples of authentication" {
		t.Errorf("OriginalQuery = %q", pq.OriginalQuery)
	}
	if pq.Intent.Primary != IntentFindExamples {
		t.Errorf("intent = %q, want find_examples", pq.Intent.Primary)
	}
	if pq.EnhancedQuery == pq.OriginalQuery {
		t.Error("expected the query to be enhanced")
	}
	if pq.Strategy.RankingStrategy != pq.Intent.SuggestedParameters.RankingStrategy {
		t.Errorf("strategy ranking %q does not follow intent", pq.Strategy.RankingStrategy)
	}
	if len(pq.Strategy.BoostFactors) == 0 || len(pq.Strategy.PenaltyFactors) == 0 {
		t.Error("expected boost and penalty factors")
	}
	if len(pq.Filters.Languages) != 1 || pq.Filters.Languages[0] != "go" {
		t.Errorf("Filters.Languages = %v, want [go]", pq.Filters.Languages)
	}
	if len(pq.Filters.SnapshotIDs) != 1 {
		t.Errorf("Filters.SnapshotIDs = %v", pq.Filters.SnapshotIDs)
	}
	if !pq.Filters.IncludeTests {
		t.Error("examples should include tests")
	}
	if pq.Language != "go" {
		t.Errorf("Language = %q, want go", pq.Language)
	}
	if pq.ComplexityScore < 0 || pq.ComplexityScore > 1 {
		t.Errorf("ComplexityScore = %v out of range", pq.ComplexityScore)
	}
	if len(pq.ExpectedResultTypes) == 0 {
		t.Error("expected result types")
	}
	if len(pq.SubQueries) != 0 {
		t.Errorf("simple query should not decompose, got %v", pq.SubQueries)
	}
	if pq.Metadata.ProcessingTime <= 0 {
		t.Error("expected processing time to be recorded")
	}
	if len(pq.Metadata.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", pq.Metadata.Warnings)
	}
}

func TestServiceProcessQuery_Warnings(t *testing.T) {
	service := NewService(logger.New("error", "text"))

	pq, err := service.ProcessQuery(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pq.Metadata.Warnings) != 1 {
		t.Errorf("expected one warning for a too-short query, got %v", pq.Metadata.Warnings)
	}
	if pq.Metadata.Validation.IsValid {
		t.Error("validation should be recorded as invalid")
	}
}

func TestServiceProcessQuery_Decomposes(t *testing.T) {
	service := NewService(nil)

	pq, err := service.ProcessQuery(context.Background(), "find auth code and show error handling", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pq.SubQueries) != 2 {
		t.Errorf("expected 2 sub-queries, got %d", len(pq.SubQueries))
	}
}

func TestServiceProcessQuery_Empty(t *testing.T) {
	service := NewService(logger.New("error", "text"))

	pq, err := service.ProcessQuery(context.Background(), "   ", nil)
	if err == nil {
		t.Fatal("expected error for empty query")
	}
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if pq != nil {
		t.Error("no partial result may be returned")
	}
}

func TestServiceProcessQuery_Canceled(t *testing.T) {
	service := NewService(logger.New("error", "text"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pq, err := service.ProcessQuery(ctx, "find user authentication", nil)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if pq != nil {
		t.Error("no partial result may be returned")
	}
}

func TestComplexityScore(t *testing.T) {
	simple := ComplexityScore("auth")
	long := ComplexityScore("find the database handler and the api middleware plus the cache layer, also explain how the config is validated")

	if simple < 0 || simple > 1 || long < 0 || long > 1 {
		t.Fatalf("scores out of range: %v %v", simple, long)
	}
	if simple >= long {
		t.Errorf("expected %v < %v", simple, long)
	}
	if ComplexityScore("") != 0 {
		t.Error("empty query should have zero complexity")
	}
}

func TestServiceConcurrency(t *testing.T) {
	service := NewService(logger.New("error", "text"))
	ctx := context.Background()

	queries := []string{
		"find authentication",
		"how does parsing work",
		"list all tests",
		"fix database error",
		"show me examples of retries and explain backoff",
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(queries))
	for _, q := range queries {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			first, err := service.ProcessQuery(ctx, query, nil)
			if err != nil {
				errs <- err
				return
			}
			second, err := service.ProcessQuery(ctx, query, nil)
			if err != nil {
				errs <- err
				return
			}
			if first.EnhancedQuery != second.EnhancedQuery || first.Intent.Primary != second.Intent.Primary {
				t.Errorf("non-deterministic processing for %q", query)
			}
		}(q)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error in concurrent processing: %v", err)
	}
}
