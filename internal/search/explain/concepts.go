package explain

import (
	"path"
	"strings"

	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// profile is the precomputed vocabulary of one result.
type profile struct {
	tokens    result.TokenSet
	structure []string
}

func newProfile(r *result.RankedResult) profile {
	tokens := result.TokensOf(&r.EnrichedResult)

	names := append([]string{strings.TrimSuffix(path.Base(r.FilePath), path.Ext(r.FilePath))}, r.Symbols...)
	for _, name := range names {
		for _, part := range query.SplitCases(name) {
			if len(part) > 1 {
				tokens[part] = struct{}{}
			}
		}
	}

	structure := make([]string, 0, len(r.Symbols)+len(r.Enhanced.DesignPatterns))
	structure = append(structure, r.Symbols...)
	structure = append(structure, r.Enhanced.DesignPatterns...)

	return profile{tokens: tokens, structure: structure}
}

// queryTerms collects the concepts of the original query and its enhancement.
func queryTerms(pq *query.ProcessedQuery) []string {
	if pq == nil {
		return nil
	}

	seen := make(map[string]bool)
	var terms []string
	add := func(list []string) {
		for _, t := range list {
			if !seen[t] {
				seen[t] = true
				terms = append(terms, t)
			}
		}
	}

	add(query.Terms(pq.OriginalQuery))
	add(query.Terms(strings.Join(pq.Metadata.AddedTerms, " ")))

	return terms
}

// matchConcepts returns the query terms found in a result, directly or
// through a code-term synonym, in query order.
func matchConcepts(terms []string, p profile) []string {
	matched := []string{}
	for _, term := range terms {
		for _, variant := range variants(term) {
			if _, ok := p.tokens[variant]; ok {
				matched = append(matched, term)
				break
			}
		}
	}
	return matched
}

func variants(term string) []string {
	out := []string{term}
	if len(term) > 3 && strings.HasSuffix(term, "s") {
		out = append(out, strings.TrimSuffix(term, "s"))
	}
	canonical := query.CanonicalTerm(term)
	if canonical != term {
		out = append(out, canonical)
	}
	out = append(out, query.GetSynonyms(canonical)...)
	return out
}
