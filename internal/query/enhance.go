package query

import (
	"fmt"
	"strings"
)

const (
	baseEnhancementConfidence = 0.8
	maxTechnicalTerms         = 2
	manyTermsThreshold        = 5
)

// EnhanceQuery appends language, intent, category and framework terms to a
// query. A term is never added when the text already contains it, ignoring case.
func EnhanceQuery(text string, intent QueryIntent, qctx *Context) EnhancedQuery {
	original := strings.TrimSpace(text)
	e := enhancer{current: original, lowerQuery: strings.ToLower(original)}

	if qctx != nil && qctx.Language != "" {
		if e.add(strings.ToLower(qctx.Language)) {
			e.reason(fmt.Sprintf("added language %q from context", qctx.Language))
		}
	}

	added := 0
	for _, term := range intentTechnicalTerms[intent.Primary] {
		if added == maxTechnicalTerms {
			break
		}
		if e.add(term) {
			added++
			e.reason(fmt.Sprintf("added %q for %s intent", term, intent.Primary))
		}
	}

	for _, category := range contextCategories {
		if !category.matches(e.lowerQuery) {
			continue
		}
		if e.add(category.term) {
			e.reason(fmt.Sprintf("added %q for %s context", category.term, category.name))
		}
	}

	if qctx != nil && qctx.Workspace != nil {
		mentionsFramework := strings.Contains(e.lowerQuery, "framework")
		for _, fw := range qctx.Workspace.Frameworks {
			lowerFw := strings.ToLower(strings.TrimSpace(fw))
			if lowerFw == "" {
				continue
			}
			if !mentionsFramework && !strings.Contains(e.lowerQuery, lowerFw) {
				continue
			}
			if e.add(fw) {
				e.reason(fmt.Sprintf("added workspace framework %q", fw))
			}
		}
	}

	addedTerms := e.added
	if addedTerms == nil {
		addedTerms = []string{}
	}
	reasoning := e.reasoning
	if reasoning == nil {
		reasoning = []string{}
	}

	return EnhancedQuery{
		Original:   original,
		Enhanced:   e.current,
		AddedTerms: addedTerms,
		Confidence: enhancementConfidence(original, e.current, len(addedTerms)),
		Reasoning:  reasoning,
	}
}

type enhancer struct {
	current    string
	lowerQuery string
	added      []string
	reasoning  []string
}

// add appends term unless it already occurs in the enhanced text.
func (e *enhancer) add(term string) bool {
	if term == "" || strings.Contains(strings.ToLower(e.current), strings.ToLower(term)) {
		return false
	}
	if e.current == "" {
		e.current = term
	} else {
		e.current += " " + term
	}
	e.added = append(e.added, term)
	return true
}

func (e *enhancer) reason(msg string) {
	e.reasoning = append(e.reasoning, msg)
}

func (c contextCategory) matches(lowerQuery string) bool {
	for _, keyword := range c.keywords {
		if containsWord(lowerQuery, keyword) {
			return true
		}
	}
	return false
}

func enhancementConfidence(original, enhanced string, addedCount int) float64 {
	confidence := baseEnhancementConfidence
	if addedCount > manyTermsThreshold {
		confidence -= 0.2
	}

	if len(original) > 0 {
		ratio := float64(len(enhanced)) / float64(len(original))
		switch {
		case ratio > 2.0:
			confidence -= 0.1
		case ratio >= 1.2:
			confidence += 0.1
		}
	}

	return clamp(confidence, 0.1, 1.0)
}
