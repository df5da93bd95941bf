// Package result defines the data flowing through the search pipeline, from
// raw vector matches to explained results, plus the pipeline options.
package result

import (
	"path"
	"strings"
	"time"
)

// CandidateMatch is a single scored match returned by the vector index.
type CandidateMatch struct {
	ID         string   `json:"id"`
	FilePath   string   `json:"file_path"`
	SnapshotID string   `json:"snapshot_id"`
	Score      float64  `json:"score"`
	Language   string   `json:"language,omitempty"`
	StartLine  int      `json:"start_line,omitempty"`
	EndLine    int      `json:"end_line,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
	Symbols    []string `json:"symbols,omitempty"`
}

// FileKey identifies the file a match belongs to.
func (c CandidateMatch) FileKey() string {
	return c.SnapshotID + "\x00" + c.FilePath
}

// QualityMetrics are code quality signals for a chunk. Scores are in [0,1].
type QualityMetrics struct {
	OverallScore         float64  `json:"overall_score"`
	ReadabilityScore     float64  `json:"readability_score"`
	MaintainabilityScore float64  `json:"maintainability_score"`
	ComplexityScore      float64  `json:"complexity_score"`
	DocumentationRatio   float64  `json:"documentation_ratio"`
	HasTests             bool     `json:"has_tests"`
	CodeSmells           []string `json:"code_smells,omitempty"`
}

// EnhancedMetadata are structural facts about a chunk.
type EnhancedMetadata struct {
	HasErrorHandling bool      `json:"has_error_handling"`
	HasLogging       bool      `json:"has_logging"`
	IsTestFile       bool      `json:"is_test_file"`
	DesignPatterns   []string  `json:"design_patterns,omitempty"`
	Dependencies     []string  `json:"dependencies,omitempty"`
	UsageFrequency   int       `json:"usage_frequency"`
	LastModified     time.Time `json:"last_modified,omitempty"`
}

// NeutralQuality is substituted when quality data is missing. The values sit
// exactly on the suggestion bars so absent data neither boosts nor penalises.
func NeutralQuality() QualityMetrics {
	return QualityMetrics{
		OverallScore:         0.5,
		ReadabilityScore:     0.6,
		MaintainabilityScore: 0.5,
		ComplexityScore:      0.5,
		DocumentationRatio:   0.1,
	}
}

// NeutralMetadata is substituted when structural metadata is missing.
func NeutralMetadata() EnhancedMetadata {
	return EnhancedMetadata{}
}

// EnrichedResult is a candidate with hydrated content and metadata.
type EnrichedResult struct {
	CandidateMatch
	Content  string           `json:"content"`
	Quality  QualityMetrics   `json:"quality"`
	Enhanced EnhancedMetadata `json:"enhanced"`
}

// RankedResult is an enriched result with its composite score.
type RankedResult struct {
	EnrichedResult
	CompositeScore float64  `json:"composite_score"`
	AppliedFactors []string `json:"applied_factors,omitempty"`
}

// ConfidenceFactor is one named contribution to the confidence in a result.
type ConfidenceFactor struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// Explanation justifies why a result was returned.
type Explanation struct {
	WhyRelevant       string             `json:"why_relevant"`
	KeyFeatures       []string           `json:"key_features"`
	MatchedConcepts   []string           `json:"matched_concepts"`
	ConfidenceFactors []ConfidenceFactor `json:"confidence_factors"`
}

// Suggestion types.
const (
	SuggestionImprovement   = "improvement"
	SuggestionDocumentation = "documentation"
	SuggestionUsage         = "usage"
	SuggestionTesting       = "testing"
)

// Suggestion is an actionable hint attached to a result.
type Suggestion struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// Alternative points at another accepted result similar to this one.
type Alternative struct {
	ID              string   `json:"id"`
	FilePath        string   `json:"file_path"`
	SimilarityScore float64  `json:"similarity_score"`
	Differences     []string `json:"differences"`
}

// ExplainedResult is the final output item of the pipeline.
type ExplainedResult struct {
	RankedResult
	Explanation  Explanation   `json:"explanation"`
	Suggestions  []Suggestion  `json:"suggestions"`
	Alternatives []Alternative `json:"alternatives"`
}

// ProcessingStats summarises one pipeline run.
type ProcessingStats struct {
	OriginalCount       int           `json:"original_count"`
	FinalCount          int           `json:"final_count"`
	ProcessingTime      time.Duration `json:"processing_time"`
	DiversityScore      float64       `json:"diversity_score"`
	AverageQualityScore float64       `json:"average_quality_score"`
	FilteredByQuality   int           `json:"filtered_by_quality"`
	DuplicatesRemoved   int           `json:"duplicates_removed"`
}

var testPathMarkers = []string{"_test.", ".test.", ".spec.", "/test/", "/tests/", "/__tests__/"}

// IsTestPath reports whether a file path looks like a test file.
func IsTestPath(filePath string) bool {
	lower := strings.ToLower(filePath)
	if strings.HasPrefix(lower, "test/") || strings.HasPrefix(lower, "tests/") {
		return true
	}
	if strings.HasPrefix(path.Base(lower), "test_") {
		return true
	}
	for _, marker := range testPathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
