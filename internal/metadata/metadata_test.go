package metadata

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/search/result"
	"github.com/ricesearch/rice-insight/internal/store"
)

const cleanGo = `// Load reads the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("read failed: %v", err)
		return nil, err
	}
	return parse(data)
}`

const smellyGo = `func process(a, b, c, d, e, g int) int {
	// TODO: split this up
	x := 42 + 17 + 99 + 300 + 7 + 8
	if a > b {
		for i := 0; i < c; i++ {
			if d > e {
				if g > x {
					if a > 3 && b < 4 {
						return x
					}
				}
			}
		}
	}
	return 0
}`

func TestExtractSymbols(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		language string
		want     []string
	}{
		{
			name: "go declarations in order",
			content: `type TokenValidator struct{}

func NewTokenValidator() *TokenValidator { return nil }

func (v *TokenValidator) Validate(token string) error { return nil }`,
			language: "go",
			want:     []string{"TokenValidator", "NewTokenValidator", "Validate"},
		},
		{
			name:     "python",
			content:  "class UserService:\n    def get_user(self, id):\n        pass",
			language: "python",
			want:     []string{"UserService", "get_user"},
		},
		{
			name:     "generic fallback",
			content:  "local function noop() end\nfunction load_config()\nend",
			language: "lua",
			want:     []string{"noop", "load_config"},
		},
		{
			name:     "nothing declared",
			content:  "x = 1",
			language: "go",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSymbols(tt.content, tt.language)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractSymbols() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractImports(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		language string
		want     []string
	}{
		{
			name:     "go block with alias",
			content:  "import (\n\t\"context\"\n\tlog \"github.com/x/logger\"\n)",
			language: "go",
			want:     []string{"context", "github.com/x/logger"},
		},
		{
			name:     "python",
			content:  "from os import path\nimport json\nimport json",
			language: "python",
			want:     []string{"os", "json"},
		},
		{
			name:     "typescript",
			content:  "import { x } from './auth'\nconst y = require('lodash')",
			language: "typescript",
			want:     []string{"./auth", "lodash"},
		},
		{
			name:     "unknown language",
			content:  "require 'json'",
			language: "ruby",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractImports(tt.content, tt.language)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractImports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzer_CleanCode(t *testing.T) {
	rec := NewAnalyzer().Analyze(Input{Path: "config/load.go", Language: "go", Content: cleanGo})

	if !rec.Enhanced.HasErrorHandling {
		t.Error("HasErrorHandling = false")
	}
	if !rec.Enhanced.HasLogging {
		t.Error("HasLogging = false")
	}
	if rec.Enhanced.IsTestFile || rec.Quality.HasTests {
		t.Errorf("IsTestFile = %v, HasTests = %v, want false", rec.Enhanced.IsTestFile, rec.Quality.HasTests)
	}
	if len(rec.Quality.CodeSmells) != 0 {
		t.Errorf("CodeSmells = %v, want none", rec.Quality.CodeSmells)
	}
	if r := rec.Quality.DocumentationRatio; r <= 0 || r >= 0.2 {
		t.Errorf("DocumentationRatio = %v, want in (0, 0.2)", r)
	}
	q := rec.Quality
	for name, v := range map[string]float64{
		"overall":         q.OverallScore,
		"readability":     q.ReadabilityScore,
		"maintainability": q.MaintainabilityScore,
		"complexity":      q.ComplexityScore,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s score = %v, want within [0,1]", name, v)
		}
	}
}

func TestAnalyzer_Smells(t *testing.T) {
	rec := NewAnalyzer().Analyze(Input{Path: "proc.go", Language: "go", Content: smellyGo})

	for _, want := range []string{SmellDeepNesting, SmellTodoComments, SmellTooManyParameters, SmellMagicNumbers} {
		found := false
		for _, s := range rec.Quality.CodeSmells {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Errorf("CodeSmells = %v, missing %s", rec.Quality.CodeSmells, want)
		}
	}

	clean := NewAnalyzer().Analyze(Input{Path: "config/load.go", Language: "go", Content: cleanGo})
	if rec.Quality.OverallScore >= clean.Quality.OverallScore {
		t.Errorf("smelly overall %v >= clean overall %v", rec.Quality.OverallScore, clean.Quality.OverallScore)
	}
	if rec.Quality.ComplexityScore <= clean.Quality.ComplexityScore {
		t.Errorf("smelly complexity %v <= clean complexity %v", rec.Quality.ComplexityScore, clean.Quality.ComplexityScore)
	}
}

func TestAnalyzer_LongLines(t *testing.T) {
	long := strings.Repeat("x", 150)
	content := strings.Repeat("value := \""+long+"\"\n", 5)

	rec := NewAnalyzer().Analyze(Input{Path: "a.go", Language: "go", Content: content})
	if rec.Quality.ReadabilityScore >= 1 {
		t.Errorf("ReadabilityScore = %v, want penalised", rec.Quality.ReadabilityScore)
	}
	found := false
	for _, s := range rec.Quality.CodeSmells {
		found = found || s == SmellLongLines
	}
	if !found {
		t.Errorf("CodeSmells = %v, want %s", rec.Quality.CodeSmells, SmellLongLines)
	}
}

func TestAnalyzer_TestFile(t *testing.T) {
	content := "func TestValidate(t *testing.T) {\n\tif err := Validate(\"x\"); err != nil {\n\t\tt.Fatal(err)\n\t}\n}"
	rec := NewAnalyzer().Analyze(Input{Path: "auth/token_test.go", Language: "go", Content: content})

	if !rec.Enhanced.IsTestFile || !rec.Quality.HasTests {
		t.Errorf("IsTestFile = %v, HasTests = %v, want true", rec.Enhanced.IsTestFile, rec.Quality.HasTests)
	}
}

func TestAnalyzer_EmptyContentIsNeutral(t *testing.T) {
	rec := NewAnalyzer().Analyze(Input{Path: "tests/empty.py", Content: "  \n"})

	if !reflect.DeepEqual(rec.Quality, result.NeutralQuality()) {
		t.Errorf("Quality = %+v, want neutral", rec.Quality)
	}
	if !rec.Enhanced.IsTestFile {
		t.Error("IsTestFile should follow the path")
	}
}

func TestAnalyzer_DesignPatterns(t *testing.T) {
	content := "type UserRepository struct{}\nvar once sync.Once\nfunc NewUserFactory() {}"
	rec := NewAnalyzer().Analyze(Input{Path: "users.go", Language: "go", Content: content})

	want := []string{"factory", "repository", "singleton"}
	if !reflect.DeepEqual(rec.Enhanced.DesignPatterns, want) {
		t.Errorf("DesignPatterns = %v, want %v", rec.Enhanced.DesignPatterns, want)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*Record, error) {
	return nil, errors.TransientError("get", fmt.Errorf("connection reset"))
}

func (failingStore) Put(context.Context, string, Record) error { return nil }

func TestProvider(t *testing.T) {
	ctx := context.Background()
	log := logger.New("error", "text")

	stored := Record{
		Quality:  result.QualityMetrics{OverallScore: 0.9, ReadabilityScore: 0.8},
		Enhanced: result.EnhancedMetadata{UsageFrequency: 7},
	}
	mem := NewMemoryStore()
	if err := mem.Put(ctx, "chunk-1", stored); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	tests := []struct {
		name      string
		store     Store
		candidate result.CandidateMatch
		content   string
		check     func(t *testing.T, q result.QualityMetrics, e result.EnhancedMetadata)
	}{
		{
			name:      "stored record wins",
			store:     mem,
			candidate: result.CandidateMatch{ID: "chunk-1", FilePath: "a.go"},
			content:   cleanGo,
			check: func(t *testing.T, q result.QualityMetrics, e result.EnhancedMetadata) {
				if q.OverallScore != 0.9 || e.UsageFrequency != 7 {
					t.Errorf("got %+v %+v, want stored record", q, e)
				}
			},
		},
		{
			name:      "missing record is analyzed",
			store:     mem,
			candidate: result.CandidateMatch{ID: "chunk-2", FilePath: "a.go", Language: "go"},
			content:   cleanGo,
			check: func(t *testing.T, q result.QualityMetrics, e result.EnhancedMetadata) {
				if !e.HasErrorHandling {
					t.Error("expected analyzed metadata")
				}
			},
		},
		{
			name:      "failing store falls back to analysis",
			store:     failingStore{},
			candidate: result.CandidateMatch{ID: "chunk-3", FilePath: "a.go", Language: "go"},
			content:   cleanGo,
			check: func(t *testing.T, q result.QualityMetrics, e result.EnhancedMetadata) {
				if !e.HasLogging {
					t.Error("expected analyzed metadata")
				}
			},
		},
		{
			name:      "no store and no content is neutral",
			candidate: result.CandidateMatch{ID: "chunk-4", FilePath: "a.go"},
			check: func(t *testing.T, q result.QualityMetrics, e result.EnhancedMetadata) {
				if !reflect.DeepEqual(q, result.NeutralQuality()) {
					t.Errorf("Quality = %+v, want neutral", q)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.store, log)
			q, e := p.Metadata(ctx, tt.candidate, tt.content)
			tt.check(t, q, e)
		})
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	if _, err := NewMemoryStore().Get(context.Background(), "nope"); !errors.IsNotFound(err) {
		t.Errorf("Get() error = %v, want not found", err)
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client, err := store.NewRedisClient(ctx, "redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer client.Close()

	rs := NewRedisStore(client, "rice:insight:test:")
	defer client.Del(ctx, "rice:insight:test:meta:chunk-1")

	if _, err := rs.Get(ctx, "chunk-1"); !errors.IsNotFound(err) {
		t.Fatalf("Get() before Put error = %v, want not found", err)
	}

	rec := Record{Quality: result.QualityMetrics{OverallScore: 0.75, CodeSmells: []string{SmellLongLines}}}
	if err := rs.Put(ctx, "chunk-1", rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := rs.Get(ctx, "chunk-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Quality.OverallScore != 0.75 || len(got.Quality.CodeSmells) != 1 {
		t.Errorf("Get() = %+v", got)
	}
}
