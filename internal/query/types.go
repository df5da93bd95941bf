// Package query provides natural-language query understanding for code search:
// intent classification, enhancement, decomposition and validation.
package query

import "time"

// Intent is the classified purpose behind a code search query.
type Intent string

const (
	// IntentFindImplementation - looking for where something is implemented.
	IntentFindImplementation Intent = "find_implementation"

	// IntentFindUsage - looking for call sites and references.
	IntentFindUsage Intent = "find_usage"

	// IntentFindSimilar - looking for code similar to something known.
	IntentFindSimilar Intent = "find_similar"

	// IntentAnalyzeQuality - assessing code quality.
	IntentAnalyzeQuality Intent = "analyze_quality"

	// IntentFindPatterns - looking for design patterns or architecture.
	IntentFindPatterns Intent = "find_patterns"

	// IntentUnderstandBehavior - seeking understanding of how code works.
	IntentUnderstandBehavior Intent = "understand_behavior"

	// IntentFindExamples - looking for usage examples.
	IntentFindExamples Intent = "find_examples"

	// IntentDebugIssue - debugging or fixing issues.
	IntentDebugIssue Intent = "debug_issue"
)

// AllIntents lists every primary intent in declaration order.
var AllIntents = []Intent{
	IntentFindImplementation,
	IntentFindUsage,
	IntentFindSimilar,
	IntentAnalyzeQuality,
	IntentFindPatterns,
	IntentUnderstandBehavior,
	IntentFindExamples,
	IntentDebugIssue,
}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// Agent types that influence classification.
const (
	AgentCodeReview = "code_review"
	AgentDebugging  = "debugging"
)

// SecondaryTesting is the secondary tag added when a query is about tests.
const SecondaryTesting = "testing"

// Context is optional request-scoped information supplied with a query.
type Context struct {
	// Language is the programming language the caller works in.
	Language string `json:"language,omitempty"`

	// AgentType identifies the calling agent (e.g. code_review, debugging).
	AgentType string `json:"agent_type,omitempty"`

	// Workspace describes the caller's project.
	Workspace *WorkspaceContext `json:"workspace,omitempty"`

	// RecentSearches are the caller's previous queries, newest last.
	RecentSearches []string `json:"recent_searches,omitempty"`
}

// WorkspaceContext describes the project a query is issued against.
type WorkspaceContext struct {
	ProjectName string   `json:"project_name,omitempty"`
	Frameworks  []string `json:"frameworks,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	SnapshotIDs []string `json:"snapshot_ids,omitempty"`
}

// SuggestedParameters are search parameters derived purely from the primary intent.
type SuggestedParameters struct {
	SearchMode            string `json:"search_mode"`
	RankingStrategy       string `json:"ranking_strategy"`
	IncludeQualityMetrics bool   `json:"include_quality_metrics"`
	IncludeRelationships  bool   `json:"include_relationships"`
	ContextRadius         int    `json:"context_radius"`
}

// QueryIntent is the result of intent classification.
type QueryIntent struct {
	Primary             Intent              `json:"primary"`
	Secondary           []string            `json:"secondary"`
	Confidence          float64             `json:"confidence"`
	Context             []string            `json:"context"`
	SuggestedParameters SuggestedParameters `json:"suggested_parameters"`
}

// EnhancedQuery is a query with appended search terms.
type EnhancedQuery struct {
	Original   string   `json:"original"`
	Enhanced   string   `json:"enhanced"`
	AddedTerms []string `json:"added_terms"`
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
}

// Priority of a decomposed sub-query.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// SubQuery is one fragment of a decomposed complex query.
type SubQuery struct {
	Query        string      `json:"query"`
	Intent       QueryIntent `json:"intent"`
	Priority     Priority    `json:"priority"`
	Dependencies []string    `json:"dependencies"`
}

// Issue types reported by validation.
const (
	IssueTooNarrow     = "too_narrow"
	IssueTooBroad      = "too_broad"
	IssueAmbiguous     = "ambiguous"
	IssueUnclearIntent = "unclear_intent"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Suggestion types reported by validation.
const (
	SuggestionContextAddition = "context_addition"
	SuggestionRefinement      = "refinement"
	SuggestionExpansion       = "expansion"
)

// ValidationIssue is a problem found in a query.
type ValidationIssue struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ValidationSuggestion is a hint for improving a query.
type ValidationSuggestion struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Example string `json:"example,omitempty"`
}

// ValidationResult is the outcome of query validation.
type ValidationResult struct {
	IsValid          bool                   `json:"is_valid"`
	Issues           []ValidationIssue      `json:"issues"`
	Suggestions      []ValidationSuggestion `json:"suggestions"`
	EstimatedQuality float64                `json:"estimated_quality"`
}

// Factor is a conditional score multiplier applied during ranking.
type Factor struct {
	Condition   string  `json:"condition"`
	Multiplier  float64 `json:"multiplier"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// SearchStrategy describes how results for a query should be searched and ranked.
type SearchStrategy struct {
	Mode            string   `json:"mode"`
	RankingStrategy string   `json:"ranking_strategy"`
	Diversification bool     `json:"diversification"`
	ContextRadius   int      `json:"context_radius"`
	BoostFactors    []Factor `json:"boost_factors"`
	PenaltyFactors  []Factor `json:"penalty_factors"`
}

// Filters constrain candidate retrieval.
type Filters struct {
	Languages    []string `json:"languages,omitempty"`
	SnapshotIDs  []string `json:"snapshot_ids,omitempty"`
	IncludeTests bool     `json:"include_tests"`
	MinQuality   float64  `json:"min_quality,omitempty"`
}

// ProcessingMetadata records how a query was processed.
type ProcessingMetadata struct {
	ProcessingTime        time.Duration    `json:"processing_time"`
	Warnings              []string         `json:"warnings"`
	Validation            ValidationResult `json:"validation"`
	EnhancementConfidence float64          `json:"enhancement_confidence"`
	AddedTerms            []string         `json:"added_terms"`
}

// ProcessedQuery is the read-only output of query understanding.
type ProcessedQuery struct {
	OriginalQuery       string             `json:"original_query"`
	EnhancedQuery       string             `json:"enhanced_query"`
	Intent              QueryIntent        `json:"intent"`
	Strategy            SearchStrategy     `json:"search_strategy"`
	Filters             Filters            `json:"filters"`
	ExpectedResultTypes []string           `json:"expected_result_types"`
	ComplexityScore     float64            `json:"complexity_score"`
	SubQueries          []SubQuery         `json:"sub_queries,omitempty"`
	Language            string             `json:"language,omitempty"`
	Metadata            ProcessingMetadata `json:"processing_metadata"`
}

// Search modes.
const (
	ModeSemantic   = "semantic"
	ModeHybrid     = "hybrid"
	ModeStructural = "structural"
)

// Ranking strategies.
const (
	RankRelevance = "relevance"
	RankQuality   = "quality"
	RankRecency   = "recency"
	RankUsage     = "usage"
	RankBalanced  = "balanced"
)
