package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	openai "github.com/openai/openai-go"

	"github.com/ricesearch/rice-insight/internal/config"
	apperrors "github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	cache := NewEmbeddingCache(10)

	if _, ok := cache.Get("hello", "go"); ok {
		t.Error("expected miss on empty cache")
	}

	emb := []float32{0.1, 0.2, 0.3}
	cache.Set("hello", "go", emb)

	got, ok := cache.Get("hello", "go")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if len(got) != 3 || got[0] != 0.1 {
		t.Errorf("unexpected embedding %v", got)
	}

	if _, ok := cache.Get("hello", "python"); ok {
		t.Error("language hint must be part of the key")
	}

	got[0] = 9
	emb[1] = 9
	again, _ := cache.Get("hello", "go")
	if again[0] != 0.1 || again[1] != 0.2 {
		t.Errorf("cache must hold copies, got %v", again)
	}

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 2 || stats.Size != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestEmbeddingCache_LRUEviction(t *testing.T) {
	cache := NewEmbeddingCache(2)

	cache.Set("a", "", []float32{1})
	cache.Set("b", "", []float32{2})
	cache.Get("a", "")
	cache.Set("c", "", []float32{3})

	if _, ok := cache.Get("b", ""); ok {
		t.Error("b should have been evicted as least recently used")
	}
	if _, ok := cache.Get("a", ""); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := cache.Get("c", ""); !ok {
		t.Error("c should be cached")
	}
}

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, text, languageHint string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text))}, nil
}

func TestCachedEmbedder(t *testing.T) {
	next := &countingEmbedder{}
	e := NewCachedEmbedder(next, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Embed(ctx, "parse config", "go"); err != nil {
			t.Fatalf("Embed: %v", err)
		}
	}
	if next.calls != 1 {
		t.Errorf("upstream called %d times, want 1", next.calls)
	}

	if _, err := e.Embed(ctx, "parse config", ""); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("different hint should miss, upstream calls = %d", next.calls)
	}
}

func TestCachedEmbedder_ErrorsNotCached(t *testing.T) {
	next := &countingEmbedder{err: apperrors.TimeoutError("embed")}
	e := NewCachedEmbedder(next, NewEmbeddingCache(4))

	for i := 0; i < 2; i++ {
		if _, err := e.Embed(context.Background(), "x", ""); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 2 {
		t.Errorf("failed embeddings must not be cached, calls = %d", next.calls)
	}
}

func TestRateLimitedEmbedder(t *testing.T) {
	next := &countingEmbedder{}
	e := NewRateLimitedEmbedder(next, RateLimitConfig{RequestsPerSecond: 1000, Burst: 5})

	for i := 0; i < 5; i++ {
		if _, err := e.Embed(context.Background(), "q", ""); err != nil {
			t.Fatalf("Embed: %v", err)
		}
	}
	if next.calls != 5 {
		t.Errorf("calls = %d, want 5", next.calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := NewRateLimitedEmbedder(next, RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	slow.limiter.Allow()
	if _, err := slow.Embed(ctx, "q", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHashingEmbedder(t *testing.T) {
	e := NewHashingEmbedder(128)
	ctx := context.Background()

	a, err := e.Embed(ctx, "parse the config file", "go")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	again, _ := e.Embed(ctx, "parse the config file", "go")
	for i := range a {
		if a[i] != again[i] {
			t.Fatal("hashing embedder must be deterministic")
		}
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("vector norm = %v, want 1", norm)
	}

	if _, err := e.Embed(ctx, "  ,; ", ""); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for empty text, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"rate limited", &openai.Error{StatusCode: 429}, apperrors.CodeRateLimited},
		{"bad key", &openai.Error{StatusCode: 401}, apperrors.CodeUnauthorized},
		{"server error", &openai.Error{StatusCode: 503}, apperrors.CodeUpstreamTransient},
		{"deadline", context.DeadlineExceeded, apperrors.CodeTimeout},
		{"network", errors.New("connection reset"), apperrors.CodeUpstreamTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperrors.CodeOf(classify(tt.err)); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}

	if !errors.Is(classify(context.Canceled), context.Canceled) {
		t.Error("cancellation must pass through unchanged")
	}
}

func TestNewEmbedder(t *testing.T) {
	log := logger.New("error", "text")

	tests := []struct {
		name     string
		cfg      config.EmbeddingConfig
		wantDims int
		wantType string
		wantErr  bool
	}{
		{
			name:     "hashing without wrappers",
			cfg:      config.EmbeddingConfig{Provider: "hashing", Dimensions: 64},
			wantDims: 64,
			wantType: "*ml.HashingEmbedder",
		},
		{
			name:     "cache is outermost",
			cfg:      config.EmbeddingConfig{Provider: "hashing", Dimensions: 32, CacheSize: 10, RequestsPerSecond: 5},
			wantDims: 32,
			wantType: "*ml.CachedEmbedder",
		},
		{
			name:     "rate limit only",
			cfg:      config.EmbeddingConfig{Provider: "hashing", Dimensions: 32, RequestsPerSecond: 5},
			wantDims: 32,
			wantType: "*ml.RateLimitedEmbedder",
		},
		{
			name:     "openai",
			cfg:      config.EmbeddingConfig{Provider: "openai", APIKey: "sk-test", Model: "text-embedding-3-small", Dimensions: 512},
			wantDims: 512,
			wantType: "*ml.OpenAIEmbedder",
		},
		{
			name:    "unknown provider",
			cfg:     config.EmbeddingConfig{Provider: "onnx"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, dims, err := NewEmbedder(tt.cfg, log)
			if tt.wantErr {
				if !apperrors.IsValidation(err) {
					t.Errorf("NewEmbedder() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEmbedder() error = %v", err)
			}
			if dims != tt.wantDims {
				t.Errorf("dims = %d, want %d", dims, tt.wantDims)
			}
			if got := fmt.Sprintf("%T", e); got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
		})
	}
}
