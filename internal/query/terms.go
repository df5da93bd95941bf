package query

import (
	"strings"
	"unicode"
)

// tokenize lowercases text and splits it into cleaned words.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if word := cleanWord(field); word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// cleanWord removes punctuation from a word, keeping identifier characters.
func cleanWord(word string) string {
	var cleaned strings.Builder
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '_' || r == '+' || r == '#' {
			cleaned.WriteRune(r)
		}
	}
	return strings.Trim(cleaned.String(), "-_")
}

// Keywords extracts the meaningful lowercased words of text, without stop words
// or duplicates, in order of first appearance.
func Keywords(text string) []string {
	tokens := tokenize(text)
	seen := make(map[string]bool, len(tokens))
	keywords := make([]string, 0, len(tokens))

	for _, token := range tokens {
		if len(token) < 2 || stopWords[token] || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
	}

	return keywords
}

// Terms returns the keywords of text plus the parts of any compound identifiers
// (camelCase, snake_case) it contains. Used for concept matching against code.
func Terms(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	add := func(term string) {
		if len(term) < 2 || stopWords[term] || seen[term] {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	for _, field := range strings.Fields(text) {
		word := cleanWord(field)
		if word == "" {
			continue
		}
		add(strings.ToLower(word))
		for _, part := range SplitCases(word) {
			add(part)
		}
	}

	return terms
}

// CountTechnicalTerms counts words that are code terms, language names or
// intent vocabulary.
func CountTechnicalTerms(text string) int {
	count := 0
	for _, token := range tokenize(text) {
		if isTechnicalToken(token) {
			count++
		}
	}
	return count
}

func isTechnicalToken(token string) bool {
	if IsCodeTerm(token) {
		return true
	}
	if _, ok := LanguageNames[token]; ok {
		return true
	}
	return technicalVocabulary[token]
}

// technicalVocabulary collects single-word intent and category terms.
var technicalVocabulary = buildTechnicalVocabulary()

func buildTechnicalVocabulary() map[string]bool {
	vocab := make(map[string]bool)
	for _, terms := range intentTechnicalTerms {
		for _, term := range terms {
			for _, word := range strings.Fields(term) {
				vocab[word] = true
			}
		}
	}
	for _, category := range contextCategories {
		for _, keyword := range category.keywords {
			vocab[keyword] = true
		}
		vocab[category.term] = true
	}
	return vocab
}

// containsWord reports whether lowerText contains word as a whole token.
func containsWord(lowerText, word string) bool {
	for _, token := range tokenize(lowerText) {
		if token == word {
			return true
		}
	}
	return false
}
