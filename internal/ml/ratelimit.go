package ml

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

// RateLimitConfig bounds calls to an embedding provider.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RateLimitedEmbedder waits for a token before every upstream call.
type RateLimitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps next. A non-positive rate disables limiting.
func NewRateLimitedEmbedder(next Embedder, cfg RateLimitConfig) *RateLimitedEmbedder {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedEmbedder{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Embed blocks until the limiter admits the call or ctx is done.
func (e *RateLimitedEmbedder) Embed(ctx context.Context, text, languageHint string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.CodeRateLimited, "embed rate limited", err)
	}
	return e.next.Embed(ctx, text, languageHint)
}
