package query

import (
	"sort"
	"strings"
)

// CodeTerms maps code-specific terms to their synonyms.
var CodeTerms = map[string][]string{
	"function":       {"func", "method", "procedure", "def", "fn"},
	"class":          {"struct", "type", "interface", "object"},
	"variable":       {"var", "const", "field", "property"},
	"error":          {"exception", "panic", "fault", "err"},
	"test":           {"spec", "unittest", "testcase"},
	"config":         {"configuration", "settings", "options", "env"},
	"database":       {"db", "storage", "repository", "store"},
	"api":            {"endpoint", "route", "handler", "controller"},
	"auth":           {"authentication", "authorization", "login", "permission"},
	"parse":          {"decode", "read", "tokenize"},
	"serialize":      {"encode", "marshal", "stringify"},
	"validate":       {"verify", "check", "sanitize"},
	"cache":          {"memoize", "buffer", "lru"},
	"log":            {"logger", "logging", "trace"},
	"http":           {"web", "rest", "request", "response"},
	"query":          {"search", "find", "lookup"},
	"index":          {"indexing", "catalog", "registry"},
	"middleware":     {"interceptor", "filter", "hook"},
	"concurrency":    {"goroutine", "thread", "mutex", "channel", "async"},
	"implementation": {"impl", "implement"},
}

// LanguageNames maps recognised language tokens to a canonical language name.
var LanguageNames = map[string]string{
	"go":         "go",
	"golang":     "go",
	"python":     "python",
	"py":         "python",
	"javascript": "javascript",
	"js":         "javascript",
	"typescript": "typescript",
	"ts":         "typescript",
	"java":       "java",
	"kotlin":     "kotlin",
	"rust":       "rust",
	"ruby":       "ruby",
	"php":        "php",
	"csharp":     "csharp",
	"c#":         "csharp",
	"cpp":        "cpp",
	"c++":        "cpp",
	"swift":      "swift",
	"scala":      "scala",
}

// intentTechnicalTerms are appended by enhancement, at most two per query.
var intentTechnicalTerms = map[Intent][]string{
	IntentFindImplementation: {"implementation", "function", "class"},
	IntentFindUsage:          {"usage", "call", "reference"},
	IntentFindSimilar:        {"similar", "pattern"},
	IntentAnalyzeQuality:     {"quality", "complexity", "maintainability"},
	IntentFindPatterns:       {"design pattern", "architecture"},
	IntentUnderstandBehavior: {"logic", "flow", "behavior"},
	IntentFindExamples:       {"example", "usage", "sample"},
	IntentDebugIssue:         {"error handling", "exception", "validation"},
}

type contextCategory struct {
	name     string
	keywords []string
	term     string
}

// contextCategories are checked in order; each contributes at most one term.
var contextCategories = []contextCategory{
	{name: "api", keywords: []string{"api", "endpoint", "route", "rest", "http", "handler"}, term: "endpoint"},
	{name: "database", keywords: []string{"database", "db", "sql", "repository", "table"}, term: "query"},
	{name: "auth", keywords: []string{"auth", "login", "authentication", "authorization", "password", "token"}, term: "authentication"},
	{name: "ui", keywords: []string{"ui", "component", "button", "view", "frontend", "render"}, term: "component"},
	{name: "test", keywords: []string{"test", "tests", "testing", "spec", "mock"}, term: "assertion"},
	{name: "config", keywords: []string{"config", "configuration", "settings", "env", "options"}, term: "configuration"},
}

// fillerTokens make very short queries ambiguous.
var fillerTokens = map[string]bool{
	"it": true, "this": true, "that": true, "thing": true, "stuff": true, "code": true,
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "how": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "to": true, "was": true, "what": true,
	"where": true, "will": true, "with": true, "i": true, "me": true, "my": true,
	"we": true, "you": true, "your": true, "this": true, "these": true,
	"those": true, "there": true, "their": true, "do": true, "does": true,
	"show": true, "find": true, "all": true,
}

// IsCodeTerm checks if a term is a known code-specific term or one of its synonyms.
func IsCodeTerm(term string) bool {
	lower := strings.ToLower(term)
	if _, ok := CodeTerms[lower]; ok {
		return true
	}
	_, ok := synonymIndex[lower]
	return ok
}

// GetSynonyms returns synonyms for a code term.
func GetSynonyms(term string) []string {
	lower := strings.ToLower(term)
	if synonyms, ok := CodeTerms[lower]; ok {
		return synonyms
	}
	return nil
}

// CanonicalTerm returns the CodeTerms key a term or synonym belongs to.
func CanonicalTerm(term string) string {
	lower := strings.ToLower(term)
	if _, ok := CodeTerms[lower]; ok {
		return lower
	}
	if canonical, ok := synonymIndex[lower]; ok {
		return canonical
	}
	return lower
}

// DetectLanguage returns the canonical language named in text, if any.
func DetectLanguage(text string) string {
	for _, token := range tokenize(text) {
		if lang, ok := LanguageNames[token]; ok {
			return lang
		}
	}
	return ""
}

// NormalizeLanguage maps aliases such as "golang" or "ts" to canonical names.
func NormalizeLanguage(lang string) string {
	lower := strings.ToLower(strings.TrimSpace(lang))
	if canonical, ok := LanguageNames[lower]; ok {
		return canonical
	}
	return lower
}

// synonymIndex is the reverse of CodeTerms, built once at init.
var synonymIndex = buildSynonymIndex()

func buildSynonymIndex() map[string]string {
	index := make(map[string]string)
	keys := make([]string, 0, len(CodeTerms))
	for key := range CodeTerms {
		keys = append(keys, key)
	}
	// First canonical term wins for shared synonyms.
	sort.Strings(keys)
	for _, key := range keys {
		for _, syn := range CodeTerms[key] {
			if _, exists := index[syn]; !exists {
				index[syn] = key
			}
		}
	}
	return index
}
