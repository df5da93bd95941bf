package query

import (
	"regexp"
	"strings"
)

const (
	defaultConfidence  = 0.7
	languageBonus      = 0.1
	agentOverrideBonus = 0.15
)

// intentRule is one ordered pattern group. A rule with secondaryOnly set
// contributes a tag and never competes for the primary intent.
type intentRule struct {
	name          string
	pattern       *regexp.Regexp
	intent        Intent
	confidence    float64
	secondaryOnly bool
}

var intentRules = []intentRule{
	{
		name:       "examples",
		pattern:    regexp.MustCompile(`\b(examples?|samples?|demos?|tutorials?|how to use|show me)\b`),
		intent:     IntentFindExamples,
		confidence: 0.9,
	},
	{
		name:       "debugging",
		pattern:    regexp.MustCompile(`\b(debug\w*|bugs?|errors?|issues?|fix|crash\w*|fail\w*|broken|exceptions?|problems?)\b`),
		intent:     IntentDebugIssue,
		confidence: 0.85,
	},
	{
		name:          "testing",
		pattern:       regexp.MustCompile(`\b(tests?|testing|specs?|unit tests?|mocks?)\b`),
		secondaryOnly: true,
	},
	{
		name:       "patterns",
		pattern:    regexp.MustCompile(`\b(patterns?|design patterns?|singleton|factory|observer|architecture)\b`),
		intent:     IntentFindPatterns,
		confidence: 0.8,
	},
	{
		name:       "usage",
		pattern:    regexp.MustCompile(`\b(usages?|used|uses|calls|call sites?|references?|who calls|callers?)\b`),
		intent:     IntentFindUsage,
		confidence: 0.8,
	},
	{
		name:       "similarity",
		pattern:    regexp.MustCompile(`\b(similar|like this|same as|equivalent|alternatives?|duplicates?)\b`),
		intent:     IntentFindSimilar,
		confidence: 0.85,
	},
	{
		name:       "quality",
		pattern:    regexp.MustCompile(`\b(quality|code smells?|refactor\w*|technical debt|complexity|maintainab\w*|clean up)\b`),
		intent:     IntentAnalyzeQuality,
		confidence: 0.8,
	},
	{
		name:       "behavior",
		pattern:    regexp.MustCompile(`\b(how does|how do|what does|explain\w*|understand\w*|behaviou?r|works?|flow)\b`),
		intent:     IntentUnderstandBehavior,
		confidence: 0.75,
	},
}

// suggestedParameters is a pure function of the primary intent.
var suggestedParameters = map[Intent]SuggestedParameters{
	IntentFindImplementation: {SearchMode: ModeHybrid, RankingStrategy: RankRelevance, IncludeRelationships: true, ContextRadius: 5},
	IntentFindUsage:          {SearchMode: ModeStructural, RankingStrategy: RankUsage, IncludeRelationships: true, ContextRadius: 3},
	IntentFindSimilar:        {SearchMode: ModeSemantic, RankingStrategy: RankRelevance, ContextRadius: 3},
	IntentAnalyzeQuality:     {SearchMode: ModeSemantic, RankingStrategy: RankQuality, IncludeQualityMetrics: true, ContextRadius: 5},
	IntentFindPatterns:       {SearchMode: ModeStructural, RankingStrategy: RankQuality, IncludeQualityMetrics: true, IncludeRelationships: true, ContextRadius: 10},
	IntentUnderstandBehavior: {SearchMode: ModeSemantic, RankingStrategy: RankBalanced, IncludeRelationships: true, ContextRadius: 10},
	IntentFindExamples:       {SearchMode: ModeHybrid, RankingStrategy: RankUsage, ContextRadius: 5},
	IntentDebugIssue:         {SearchMode: ModeHybrid, RankingStrategy: RankRecency, IncludeQualityMetrics: true, IncludeRelationships: true, ContextRadius: 10},
}

// SuggestedParametersFor returns the search parameters suited to an intent.
func SuggestedParametersFor(intent Intent) SuggestedParameters {
	if params, ok := suggestedParameters[intent]; ok {
		return params
	}
	return suggestedParameters[IntentFindImplementation]
}

type intentCandidate struct {
	intent     Intent
	confidence float64
}

// ClassifyIntent classifies the purpose of a query. It never fails; unmatched
// queries fall back to find_implementation.
func ClassifyIntent(text string, qctx *Context) QueryIntent {
	lower := strings.ToLower(text)

	best := intentCandidate{intent: IntentFindImplementation, confidence: defaultConfidence}
	matched := false
	var secondary []string

	for _, rule := range intentRules {
		if !rule.pattern.MatchString(lower) {
			continue
		}
		if rule.secondaryOnly {
			secondary = appendUnique(secondary, rule.name)
			continue
		}
		// Strict greater-than keeps the earlier group on ties.
		if !matched || rule.confidence > best.confidence {
			if matched {
				secondary = appendUnique(secondary, string(best.intent))
			}
			best = intentCandidate{intent: rule.intent, confidence: rule.confidence}
			matched = true
			continue
		}
		if rule.intent != best.intent {
			secondary = appendUnique(secondary, string(rule.intent))
		}
	}

	confidence := best.confidence
	if qctx != nil && qctx.Language != "" && containsWord(lower, strings.ToLower(qctx.Language)) {
		confidence += languageBonus
	}

	if !matched && qctx != nil {
		switch qctx.AgentType {
		case AgentCodeReview:
			best.intent = IntentAnalyzeQuality
			confidence += agentOverrideBonus
		case AgentDebugging:
			best.intent = IntentDebugIssue
			confidence += agentOverrideBonus
		}
	}

	if secondary == nil {
		secondary = []string{}
	}

	return QueryIntent{
		Primary:             best.intent,
		Secondary:           secondary,
		Confidence:          clamp(confidence, 0, 1),
		Context:             Keywords(text),
		SuggestedParameters: SuggestedParametersFor(best.intent),
	}
}

// HasSecondary reports whether the intent carries the given secondary tag.
func (qi QueryIntent) HasSecondary(tag string) bool {
	for _, s := range qi.Secondary {
		if s == tag {
			return true
		}
	}
	return false
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
