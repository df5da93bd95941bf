package query

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

// Service runs query understanding: validation, intent classification,
// enhancement, strategy derivation and decomposition.
// It holds no per-query state and is safe for concurrent use.
type Service struct {
	log *logger.Logger
}

// NewService creates a new query understanding service.
func NewService(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{log: log.WithComponent("query")}
}

// ClassifyIntent classifies the purpose of a query.
func (s *Service) ClassifyIntent(text string, qctx *Context) QueryIntent {
	return ClassifyIntent(text, qctx)
}

// EnhanceQuery appends search terms to a query.
func (s *Service) EnhanceQuery(text string, intent QueryIntent, qctx *Context) EnhancedQuery {
	return EnhanceQuery(text, intent, qctx)
}

// DecomposeComplexQuery splits a complex query into sub-queries.
func (s *Service) DecomposeComplexQuery(text string, qctx *Context) []SubQuery {
	return DecomposeComplexQuery(text, qctx)
}

// ValidateQuery reports problems with a query.
func (s *Service) ValidateQuery(text string, qctx *Context) ValidationResult {
	return ValidateQuery(text, qctx)
}

// ProcessQuery validates, classifies and enhances a query and derives the
// search strategy for it. It returns either a complete ProcessedQuery or an error.
func (s *Service) ProcessQuery(ctx context.Context, text string, qctx *Context) (*ProcessedQuery, error) {
	start := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.ValidationError("query must not be empty")
	}

	log := s.log.WithContext(ctx)

	validation := ValidateQuery(text, qctx)
	warnings := []string{}
	for _, issue := range validation.Issues {
		if issue.Severity == SeverityHigh {
			warnings = append(warnings, issue.Message)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	intent := ClassifyIntent(text, qctx)
	enhanced := EnhanceQuery(text, intent, qctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var language string
	if qctx != nil && qctx.Language != "" {
		language = NormalizeLanguage(qctx.Language)
	} else {
		language = DetectLanguage(text)
	}

	pq := &ProcessedQuery{
		OriginalQuery:       text,
		EnhancedQuery:       enhanced.Enhanced,
		Intent:              intent,
		Strategy:            DeriveStrategy(intent, qctx),
		Filters:             DeriveFilters(intent, qctx, language),
		ExpectedResultTypes: ExpectedResultTypes(intent),
		ComplexityScore:     ComplexityScore(text),
		SubQueries:          DecomposeComplexQuery(text, qctx),
		Language:            language,
		Metadata: ProcessingMetadata{
			Warnings:              warnings,
			Validation:            validation,
			EnhancementConfidence: enhanced.Confidence,
			AddedTerms:            enhanced.AddedTerms,
		},
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pq.Metadata.ProcessingTime = time.Since(start)

	log.Debug("Processed query",
		"intent", intent.Primary,
		"confidence", intent.Confidence,
		"enhanced", enhanced.Enhanced,
		"complexity", pq.ComplexityScore,
		"sub_queries", len(pq.SubQueries),
		"warnings", len(warnings),
		"duration", pq.Metadata.ProcessingTime,
	)

	return pq, nil
}

// ComplexityScore rates a query in [0,1] by length, word count, technical
// vocabulary and conjunctions.
func ComplexityScore(text string) float64 {
	length := float64(utf8.RuneCountInString(text))
	words := float64(len(strings.Fields(text)))
	technical := float64(CountTechnicalTerms(text))
	conjunctions := float64(countConjunctions(text))

	score := 0.3*min(length/100, 1) +
		0.3*min(words/10, 1) +
		0.2*min(technical/5, 1) +
		0.2*min(conjunctions/3, 1)

	return clamp(score, 0, 1)
}
