package ml

import (
	"github.com/ricesearch/rice-insight/internal/config"
	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

// Provider names accepted by NewEmbedder.
const (
	ProviderOpenAI  = "openai"
	ProviderHashing = "hashing"
)

// DimensionedEmbedder reports the size of the vectors it produces.
type DimensionedEmbedder interface {
	Embedder
	Dimensions() int
}

// NewEmbedder builds the configured provider, wrapped in a rate limiter when
// a request rate is set and in a cache when a cache size is set. It returns
// the embedder and its vector size.
func NewEmbedder(cfg config.EmbeddingConfig, log *logger.Logger) (Embedder, int, error) {
	var base DimensionedEmbedder
	switch cfg.Provider {
	case ProviderOpenAI:
		base = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}, log)
	case ProviderHashing, "":
		base = NewHashingEmbedder(cfg.Dimensions)
	default:
		return nil, 0, errors.ValidationError("unknown embedding provider").WithDetail("provider", cfg.Provider)
	}

	var e Embedder = base
	if cfg.RequestsPerSecond > 0 {
		e = NewRateLimitedEmbedder(e, RateLimitConfig{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		})
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, NewEmbeddingCache(cfg.CacheSize))
	}

	return e, base.Dimensions(), nil
}
