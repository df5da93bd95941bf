package metadata

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// Store persists chunk metadata records by chunk ID.
type Store interface {
	// Get returns a NOT_FOUND error when the chunk has no record.
	Get(ctx context.Context, chunkID string) (*Record, error)
	Put(ctx context.Context, chunkID string, rec Record) error
}

// Provider resolves metadata for candidates: stored records first, then
// analysis of the hydrated content, then neutral values.
type Provider struct {
	store    Store
	analyzer *Analyzer
	log      *logger.Logger
}

// NewProvider creates a metadata provider. A nil store means every lookup
// falls back to the analyzer.
func NewProvider(store Store, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Discard()
	}
	return &Provider{
		store:    store,
		analyzer: NewAnalyzer(),
		log:      log.WithComponent("metadata"),
	}
}

// Metadata returns quality metrics and structural metadata for a candidate.
// Lookup failures are logged and never fail the search.
func (p *Provider) Metadata(ctx context.Context, c result.CandidateMatch, content string) (result.QualityMetrics, result.EnhancedMetadata) {
	if p.store != nil {
		rec, err := p.store.Get(ctx, c.ID)
		switch {
		case err == nil:
			return rec.Quality, rec.Enhanced
		case !errors.IsNotFound(err):
			p.log.WithContext(ctx).WithError(err).Warn("Metadata lookup failed, analyzing content",
				"chunk_id", c.ID,
				"path", c.FilePath,
			)
		}
	}

	rec := p.analyzer.Analyze(Input{
		Path:     c.FilePath,
		Language: c.Language,
		Content:  content,
	})
	return rec.Quality, rec.Enhanced
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, chunkID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[chunkID]
	if !ok {
		return nil, errors.NotFoundError("metadata for chunk " + chunkID)
	}
	return &rec, nil
}

func (m *MemoryStore) Put(_ context.Context, chunkID string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[chunkID] = rec
	return nil
}

// RedisStore keeps records as JSON strings.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a connected client. Keys are prefix + "meta:" + chunk ID.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "meta:"}
}

func (r *RedisStore) Get(ctx context.Context, chunkID string) (*Record, error) {
	data, err := r.client.Get(ctx, r.prefix+chunkID).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NotFoundError("metadata for chunk " + chunkID)
	}
	if err != nil {
		return nil, errors.TransientError("redis get metadata", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.InternalError("unmarshal metadata", err)
	}
	return &rec, nil
}

func (r *RedisStore) Put(ctx context.Context, chunkID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.InternalError("marshal metadata", err)
	}
	if err := r.client.Set(ctx, r.prefix+chunkID, data, 0).Err(); err != nil {
		return errors.TransientError("redis put metadata", err)
	}
	return nil
}
