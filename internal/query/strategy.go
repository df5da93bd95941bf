package query

// Conditions evaluated by the ranker against result content and metadata.
const (
	CondHasTests          = "hasTests"
	CondHasCodeSmells     = "hasCodeSmells"
	CondHasErrorHandling  = "hasErrorHandling"
	CondHighQualityScore  = "highQualityScore"
	CondNoDocumentation   = "noDocumentation"
	CondHasDocumentation  = "hasDocumentation"
	CondHasDesignPatterns = "hasDesignPatterns"
	CondHighComplexity    = "highComplexity"
	CondHasLogging        = "hasLogging"
	CondIsTestFile        = "isTestFile"
	CondLanguageMatch     = "languageMatch"
	CondHasUsages         = "hasUsages"
)

func boost(condition string, multiplier, weight float64, description string) Factor {
	return Factor{Condition: condition, Multiplier: multiplier, Weight: weight, Description: description}
}

// intentBoosts are the boost factors specific to each primary intent.
var intentBoosts = map[Intent][]Factor{
	IntentFindImplementation: {
		boost(CondHasDocumentation, 1.1, 0.2, "documented implementations are easier to adopt"),
	},
	IntentFindUsage: {
		boost(CondHasUsages, 1.3, 0.5, "code with known call sites"),
	},
	IntentFindSimilar: {
		boost(CondHasDesignPatterns, 1.1, 0.2, "shared structure signals similarity"),
	},
	IntentAnalyzeQuality: {
		boost(CondHasTests, 1.2, 0.4, "tested code"),
		boost(CondHighComplexity, 1.1, 0.2, "complex code is worth reviewing"),
	},
	IntentFindPatterns: {
		boost(CondHasDesignPatterns, 1.4, 0.6, "recognisable design patterns"),
	},
	IntentUnderstandBehavior: {
		boost(CondHasDocumentation, 1.2, 0.4, "documented behaviour"),
		boost(CondHasLogging, 1.05, 0.1, "logging exposes control flow"),
	},
	IntentFindExamples: {
		boost(CondHasDocumentation, 1.2, 0.4, "documented examples"),
		boost(CondIsTestFile, 1.1, 0.2, "tests double as usage examples"),
	},
	IntentDebugIssue: {
		boost(CondHasErrorHandling, 1.3, 0.5, "error handling paths"),
		boost(CondHasLogging, 1.1, 0.2, "logging around failures"),
	},
}

// DeriveStrategy builds the search strategy for a classified query.
func DeriveStrategy(intent QueryIntent, qctx *Context) SearchStrategy {
	params := intent.SuggestedParameters

	boosts := []Factor{
		boost(CondHighQualityScore, 1.1, 0.3, "high overall quality"),
	}
	boosts = append(boosts, intentBoosts[intent.Primary]...)

	if qctx != nil && qctx.Language != "" {
		boosts = append(boosts, boost(CondLanguageMatch, 1.15, 0.3, "matches the requested language"))
	}

	aboutTests := intent.HasSecondary(SecondaryTesting)
	if aboutTests && intent.Primary != IntentFindExamples {
		boosts = append(boosts, boost(CondIsTestFile, 1.3, 0.4, "query asks about tests"))
	}

	penalties := []Factor{
		boost(CondNoDocumentation, 0.9, 0.2, "undocumented code"),
	}
	if intent.Primary != IntentAnalyzeQuality {
		penalties = append(penalties, boost(CondHasCodeSmells, 0.85, 0.3, "code smells"))
	}
	if intent.Primary == IntentFindExamples {
		penalties = append(penalties, boost(CondHighComplexity, 0.9, 0.2, "complex code makes a poor example"))
	}
	if !aboutTests && intent.Primary != IntentFindExamples {
		penalties = append(penalties, boost(CondIsTestFile, 0.8, 0.3, "test code when implementation is wanted"))
	}

	return SearchStrategy{
		Mode:            params.SearchMode,
		RankingStrategy: params.RankingStrategy,
		Diversification: intent.Primary != IntentFindUsage,
		ContextRadius:   params.ContextRadius,
		BoostFactors:    boosts,
		PenaltyFactors:  penalties,
	}
}

// DeriveFilters builds retrieval filters from the query intent and context.
func DeriveFilters(intent QueryIntent, qctx *Context, detectedLanguage string) Filters {
	filters := Filters{
		IncludeTests: intent.HasSecondary(SecondaryTesting) || intent.Primary == IntentFindExamples,
	}

	if qctx != nil {
		if qctx.Language != "" {
			filters.Languages = appendUnique(filters.Languages, NormalizeLanguage(qctx.Language))
		}
		if ws := qctx.Workspace; ws != nil {
			for _, lang := range ws.Languages {
				filters.Languages = appendUnique(filters.Languages, NormalizeLanguage(lang))
			}
			filters.SnapshotIDs = append(filters.SnapshotIDs, ws.SnapshotIDs...)
		}
	}
	if len(filters.Languages) == 0 && detectedLanguage != "" {
		filters.Languages = []string{detectedLanguage}
	}

	if intent.Primary == IntentFindExamples {
		filters.MinQuality = 0.4
	}

	return filters
}

var expectedResultTypes = map[Intent][]string{
	IntentFindImplementation: {"function", "class", "module"},
	IntentFindUsage:          {"call_site", "reference"},
	IntentFindSimilar:        {"function", "snippet"},
	IntentAnalyzeQuality:     {"function", "class", "quality_report"},
	IntentFindPatterns:       {"class", "interface", "module"},
	IntentUnderstandBehavior: {"function", "flow", "documentation"},
	IntentFindExamples:       {"example", "test", "documentation"},
	IntentDebugIssue:         {"error_handler", "function", "log"},
}

// ExpectedResultTypes lists the kinds of result an intent is looking for.
func ExpectedResultTypes(intent QueryIntent) []string {
	types := append([]string{}, expectedResultTypes[intent.Primary]...)
	if intent.HasSecondary(SecondaryTesting) {
		types = appendUnique(types, "test")
	}
	return types
}
