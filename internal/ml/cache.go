package ml

import (
	"context"
	"sync"

	"github.com/ricesearch/rice-insight/internal/pkg/hash"
)

// DefaultCacheSize bounds the embedding cache.
const DefaultCacheSize = 10000

// EmbeddingCache is an LRU cache of embeddings keyed by text and language hint.
type EmbeddingCache struct {
	mu      sync.Mutex
	cache   map[string][]float32
	order   []string // LRU order, oldest first
	maxSize int
	hits    int
	misses  int
}

// NewEmbeddingCache creates a new embedding cache.
func NewEmbeddingCache(maxSize int) *EmbeddingCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &EmbeddingCache{
		cache:   make(map[string][]float32),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

// Get returns a copy of the cached embedding.
func (c *EmbeddingCache) Get(text, languageHint string) ([]float32, bool) {
	key := hash.EmbeddingKey(text, languageHint)

	c.mu.Lock()
	defer c.mu.Unlock()

	emb, ok := c.cache[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.moveToEnd(key)

	return append([]float32(nil), emb...), true
}

// Set stores a copy of an embedding, evicting the least recently used entry.
func (c *EmbeddingCache) Set(text, languageHint string, embedding []float32) {
	key := hash.EmbeddingKey(text, languageHint)
	embCopy := append([]float32(nil), embedding...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; exists {
		c.cache[key] = embCopy
		c.moveToEnd(key)
		return
	}

	for len(c.cache) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}

	c.cache[key] = embCopy
	c.order = append(c.order, key)
}

// moveToEnd marks key as most recently used (must hold lock).
func (c *EmbeddingCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

// Stats returns cache statistics.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:    len(c.cache),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Size    int `json:"size"`
	MaxSize int `json:"max_size"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// CachedEmbedder serves repeated texts from an EmbeddingCache.
type CachedEmbedder struct {
	next  Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps next with cache.
func NewCachedEmbedder(next Embedder, cache *EmbeddingCache) *CachedEmbedder {
	if cache == nil {
		cache = NewEmbeddingCache(DefaultCacheSize)
	}
	return &CachedEmbedder{next: next, cache: cache}
}

// Embed returns the cached vector or embeds and caches it.
func (e *CachedEmbedder) Embed(ctx context.Context, text, languageHint string) ([]float32, error) {
	if v, ok := e.cache.Get(text, languageHint); ok {
		return v, nil
	}
	v, err := e.next.Embed(ctx, text, languageHint)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, languageHint, v)
	return v, nil
}

// Stats returns the underlying cache statistics.
func (e *CachedEmbedder) Stats() CacheStats {
	return e.cache.Stats()
}
