package metadata

import (
	"regexp"
	"sort"
	"strings"
)

// declarationPatterns capture one declared name per match, keyed by language.
var declarationPatterns = map[string][]*regexp.Regexp{
	"go": {
		regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?(\w+)\s*[\[(]`),
		regexp.MustCompile(`(?m)^type\s+(\w+)\s+`),
		regexp.MustCompile(`(?m)^\s*(?:const|var)\s+(\w+)\s+`),
	},
	"python": {
		regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+(\w+)\s*\(`),
		regexp.MustCompile(`(?m)^\s*class\s+(\w+)`),
	},
	"typescript": {
		regexp.MustCompile(`(?:async\s+)?function\s*\*?\s+(\w+)\s*[<(]`),
		regexp.MustCompile(`\b(?:class|interface|type|enum)\s+(\w+)`),
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let)\s+(\w+)\s*=\s*(?:async\s*)?\(`),
	},
	"javascript": {
		regexp.MustCompile(`(?:async\s+)?function\s*\*?\s+(\w+)\s*\(`),
		regexp.MustCompile(`\bclass\s+(\w+)`),
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?\(`),
	},
	"rust": {
		regexp.MustCompile(`\bfn\s+(\w+)\s*[<(]`),
		regexp.MustCompile(`\b(?:struct|enum|trait|mod)\s+(\w+)`),
	},
	"java": {
		regexp.MustCompile(`\b(?:class|interface|enum|record)\s+(\w+)`),
		regexp.MustCompile(`(?m)^\s*(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?[\w<>\[\],\s]+?\s+(\w+)\s*\(`),
	},
	"ruby": {
		regexp.MustCompile(`\bdef\s+(?:self\.)?(\w+[?!]?)`),
		regexp.MustCompile(`\b(?:class|module)\s+(\w+)`),
	},
	"php": {
		regexp.MustCompile(`\bfunction\s+(\w+)\s*\(`),
		regexp.MustCompile(`\b(?:class|interface|trait)\s+(\w+)`),
	},
}

var genericDeclarations = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:function|func|def|fn|fun)\s+(\w+)\s*[<(]`),
	regexp.MustCompile(`\b(?:class|struct|interface|trait|enum)\s+(\w+)`),
}

// Aliases share patterns with a listed language.
var patternAliases = map[string]string{
	"kotlin": "java",
	"csharp": "java",
	"scala":  "java",
}

var keywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "return": true,
	"switch": true, "case": true, "default": true, "new": true, "this": true,
	"self": true, "true": true, "false": true, "nil": true, "null": true,
	"func": true, "function": true, "def": true, "fn": true, "class": true,
	"struct": true, "interface": true, "type": true, "enum": true,
	"void": true, "int": true, "string": true, "bool": true,
}

// ExtractSymbols returns declared names in order of first appearance.
func ExtractSymbols(content, language string) []string {
	patterns, ok := declarationPatterns[language]
	if !ok {
		patterns, ok = declarationPatterns[patternAliases[language]]
	}
	if !ok {
		patterns = genericDeclarations
	}

	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
			if len(m) >= 4 && m[2] >= 0 {
				hits = append(hits, hit{pos: m[2], name: content[m[2]:m[3]]})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool)
	symbols := []string{}
	for _, h := range hits {
		if !validSymbol(h.name) || seen[h.name] {
			continue
		}
		seen[h.name] = true
		symbols = append(symbols, h.name)
	}
	return symbols
}

func validSymbol(s string) bool {
	if len(s) < 2 || s == "_" {
		return false
	}
	return !keywords[strings.ToLower(s)]
}

var importPatterns = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`(?m)^\s*(?:import\s+)?(?:\w+\s+)?"([\w./\-]+)"\s*$`),
	"python":     regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`),
	"typescript": regexp.MustCompile(`(?:from\s+|require\(\s*|import\s+)['"]([^'"]+)['"]`),
	"javascript": regexp.MustCompile(`(?:from\s+|require\(\s*|import\s+)['"]([^'"]+)['"]`),
	"rust":       regexp.MustCompile(`(?m)^\s*use\s+([\w:]+)`),
	"java":       regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+)`),
}

// ExtractImports returns the modules a chunk imports, deduplicated in
// order of appearance.
func ExtractImports(content, language string) []string {
	re, ok := importPatterns[language]
	if !ok {
		return []string{}
	}

	seen := make(map[string]bool)
	imports := []string{}
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		for _, g := range m[1:] {
			if g == "" || seen[g] {
				continue
			}
			seen[g] = true
			imports = append(imports, g)
		}
	}
	return imports
}
