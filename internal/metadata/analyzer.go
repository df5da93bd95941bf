// Package metadata derives and stores per-chunk quality metrics and
// structural metadata used by ranking and explanations.
package metadata

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ricesearch/rice-insight/internal/search/result"
)

// Code smells reported by the analyzer.
const (
	SmellLongFunction      = "long_function"
	SmellDeepNesting       = "deep_nesting"
	SmellLongLines         = "long_lines"
	SmellMagicNumbers      = "magic_numbers"
	SmellTodoComments      = "todo_comments"
	SmellTooManyParameters = "too_many_parameters"
)

// Analyzer thresholds.
const (
	longFunctionLines = 80
	deepNestingLevel  = 4
	longLineLength    = 120
	longLineRatio     = 0.1
	magicNumberLimit  = 5
	parameterLimit    = 5
	docRatioTarget    = 0.2
	decisionDensity   = 0.4
	maxDepthScale     = 6.0
	indentWidth       = 4
)

// Input is one chunk to analyze.
type Input struct {
	Path       string
	Language   string
	Content    string
	ModifiedAt time.Time
}

// Record is the stored metadata of one chunk.
type Record struct {
	Quality  result.QualityMetrics   `json:"quality"`
	Enhanced result.EnhancedMetadata `json:"enhanced"`
}

var (
	errorHandlingRe = regexp.MustCompile(`\berr\s*!=\s*nil\b|\btry\s*[:{]|\bcatch\b|\bexcept\b|\braise\b|\bthrow\b|\bpanic\(|\brecover\(\)|\bResult<|\?;|\.unwrap_or|\berrors\.(?:New|Wrap|Is|As)\b|\bfmt\.Errorf\(`)
	loggingRe       = regexp.MustCompile(`\b(?:log|logger|logging|slog|console|zap|logrus)\.\w+\(|\bprintln!\(|\beprintln!\(`)
	testCodeRe      = regexp.MustCompile(`\bfunc\s+(?:Test|Benchmark|Fuzz)\w*\(|\bdef\s+test_\w*\(|\b(?:describe|it|test)\(\s*['"]|@Test\b|#\[test\]|\bassert\w*[\s(]`)
	decisionRe      = regexp.MustCompile(`\b(?:if|for|while|case|catch|except|elif|select)\b|&&|\|\|`)
	todoRe          = regexp.MustCompile(`\b(?:TODO|FIXME|HACK|XXX)\b`)
	numberRe        = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	signatureRe     = regexp.MustCompile(`\b(?:func|def|function|fn)\b[^(]*\(([^()]*)\)`)
)

var patternDetectors = []struct {
	name string
	re   *regexp.Regexp
}{
	{"singleton", regexp.MustCompile(`\bsync\.Once\b|\bgetInstance\b|\b_instance\b|\bINSTANCE\b|\bSingleton\b`)},
	{"factory", regexp.MustCompile(`\w*Factory\b|\bcreate[A-Z]\w*\(`)},
	{"builder", regexp.MustCompile(`\w*Builder\b|\.Build\(\)`)},
	{"observer", regexp.MustCompile(`\b(?:Subscribe|Unsubscribe|addEventListener|addListener|Notify\w*)\(|\w*Observer\b`)},
	{"strategy", regexp.MustCompile(`\w*Strategy\b`)},
	{"adapter", regexp.MustCompile(`\w*Adapter\b`)},
	{"decorator", regexp.MustCompile(`\w*Decorator\b|\w*Middleware\b`)},
	{"repository", regexp.MustCompile(`\w*Repository\b`)},
	{"iterator", regexp.MustCompile(`\w*Iterator\b|__iter__|__next__`)},
}

// Analyzer derives metadata heuristically from chunk content.
// It is stateless and safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer creates a content analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze computes quality metrics and structural metadata for a chunk.
// Empty content yields neutral values.
func (a *Analyzer) Analyze(in Input) Record {
	isTest := result.IsTestPath(in.Path)
	if strings.TrimSpace(in.Content) == "" {
		enhanced := result.NeutralMetadata()
		enhanced.IsTestFile = isTest
		enhanced.LastModified = in.ModifiedAt
		return Record{Quality: result.NeutralQuality(), Enhanced: enhanced}
	}

	s := scan(in.Content)

	docRatio := 0.0
	if s.nonBlank > 0 {
		docRatio = float64(s.comments) / float64(s.nonBlank)
	}

	complexity := complexityScore(s)
	readability := readabilityScore(s)
	smells := codeSmells(in.Content, s)
	hasTests := isTest || testCodeRe.MatchString(in.Content)
	docScore := min(docRatio/docRatioTarget, 1)

	maintainability := 0.4*readability + 0.3*(1-complexity) + 0.2*docScore
	if hasTests {
		maintainability += 0.1
	}
	overall := 0.35*readability + 0.35*maintainability + 0.15*(1-complexity) + 0.15*docScore -
		0.05*float64(len(smells))

	return Record{
		Quality: result.QualityMetrics{
			OverallScore:         round(clamp01(overall)),
			ReadabilityScore:     round(readability),
			MaintainabilityScore: round(clamp01(maintainability)),
			ComplexityScore:      round(complexity),
			DocumentationRatio:   round(docRatio),
			HasTests:             hasTests,
			CodeSmells:           smells,
		},
		Enhanced: result.EnhancedMetadata{
			HasErrorHandling: errorHandlingRe.MatchString(in.Content),
			HasLogging:       loggingRe.MatchString(in.Content),
			IsTestFile:       isTest,
			DesignPatterns:   designPatterns(in.Content),
			Dependencies:     ExtractImports(in.Content, in.Language),
			LastModified:     in.ModifiedAt,
		},
	}
}

// lineStats summarises the lines of a chunk.
type lineStats struct {
	nonBlank  int
	comments  int
	longLines int
	totalLen  int
	maxDepth  int
	decisions int
}

func scan(content string) lineStats {
	var s lineStats
	inBlock := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		s.nonBlank++
		s.totalLen += len(line)
		if len(line) > longLineLength {
			s.longLines++
		}
		if d := indentDepth(line); d > s.maxDepth {
			s.maxDepth = d
		}

		switch {
		case inBlock:
			s.comments++
			if strings.Contains(trimmed, "*/") || strings.HasSuffix(trimmed, `"""`) {
				inBlock = false
			}
			continue
		case strings.HasPrefix(trimmed, "/*"):
			s.comments++
			inBlock = !strings.Contains(trimmed[2:], "*/")
			continue
		case strings.HasPrefix(trimmed, `"""`) && len(trimmed) >= 3:
			s.comments++
			inBlock = !strings.Contains(trimmed[3:], `"""`)
			continue
		case isLineComment(trimmed):
			s.comments++
			continue
		}

		s.decisions += len(decisionRe.FindAllStringIndex(line, -1))
	}
	return s
}

func isLineComment(trimmed string) bool {
	for _, prefix := range []string{"//", "#", "--", ";;", "* "} {
		if strings.HasPrefix(trimmed, prefix) {
			// Preprocessor lines are code.
			return !strings.HasPrefix(trimmed, "#include") && !strings.HasPrefix(trimmed, "#define") && !strings.HasPrefix(trimmed, "#[")
		}
	}
	return trimmed == "*"
}

func indentDepth(line string) int {
	depth, spaces := 0, 0
	for _, r := range line {
		switch r {
		case '\t':
			depth++
		case ' ':
			spaces++
		default:
			return depth + spaces/indentWidth
		}
	}
	return depth + spaces/indentWidth
}

func complexityScore(s lineStats) float64 {
	if s.nonBlank == 0 {
		return 0
	}
	density := float64(s.decisions) / float64(s.nonBlank)
	return clamp01(0.7*min(density/decisionDensity, 1) + 0.3*min(float64(s.maxDepth)/maxDepthScale, 1))
}

func readabilityScore(s lineStats) float64 {
	if s.nonBlank == 0 {
		return 1
	}
	score := 1.0

	avg := float64(s.totalLen) / float64(s.nonBlank)
	if avg > 80 {
		score -= min((avg-80)/100, 0.2)
	}
	score -= 0.3 * float64(s.longLines) / float64(s.nonBlank)
	if s.maxDepth > deepNestingLevel {
		score -= min(0.1*float64(s.maxDepth-deepNestingLevel), 0.3)
	}
	return clamp01(score)
}

func codeSmells(content string, s lineStats) []string {
	smells := []string{}

	if s.nonBlank-s.comments > longFunctionLines {
		smells = append(smells, SmellLongFunction)
	}
	if s.maxDepth > deepNestingLevel {
		smells = append(smells, SmellDeepNesting)
	}
	if s.nonBlank > 0 && float64(s.longLines)/float64(s.nonBlank) > longLineRatio {
		smells = append(smells, SmellLongLines)
	}
	if countMagicNumbers(content) > magicNumberLimit {
		smells = append(smells, SmellMagicNumbers)
	}
	if todoRe.MatchString(content) {
		smells = append(smells, SmellTodoComments)
	}
	for _, m := range signatureRe.FindAllStringSubmatch(content, -1) {
		if params := strings.TrimSpace(m[1]); params != "" && strings.Count(params, ",")+1 > parameterLimit {
			smells = append(smells, SmellTooManyParameters)
			break
		}
	}

	return smells
}

func countMagicNumbers(content string) int {
	n := 0
	for _, num := range numberRe.FindAllString(content, -1) {
		if num != "0" && num != "1" && num != "2" {
			n++
		}
	}
	return n
}

// designPatterns lists detected pattern names in ascending order.
func designPatterns(content string) []string {
	found := []string{}
	for _, d := range patternDetectors {
		if d.re.MatchString(content) {
			found = append(found, d.name)
		}
	}
	sort.Strings(found)
	return found
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

func round(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
