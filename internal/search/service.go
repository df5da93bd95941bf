package search

import (
	"context"
	"strings"
	"time"

	"github.com/ricesearch/rice-insight/internal/batch"
	"github.com/ricesearch/rice-insight/internal/bus"
	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/qdrant"
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search/fusion"
	"github.com/ricesearch/rice-insight/internal/search/postrank"
	"github.com/ricesearch/rice-insight/internal/search/result"
	"github.com/ricesearch/rice-insight/internal/search/retrieval"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text, languageHint string) ([]float32, error)
}

// VectorIndex is the nearest-neighbour index over chunk vectors.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, opts qdrant.QueryOptions) ([]result.CandidateMatch, error)
	Upsert(ctx context.Context, points []qdrant.Point) error
}

// ContentStore returns file contents. A missing file is ("", false, nil).
type ContentStore interface {
	GetFileContent(ctx context.Context, snapshotID, path string) (string, bool, error)
}

// MetadataProvider returns quality and structural metadata for a chunk. It
// never fails; unknown chunks get neutral values.
type MetadataProvider interface {
	Metadata(ctx context.Context, c result.CandidateMatch, content string) (result.QualityMetrics, result.EnhancedMetadata)
}

// Config configures the search service.
type Config struct {
	// DefaultLimit is the number of results returned when a request sets none.
	DefaultLimit int

	// CandidateMultiplier controls how many candidates survive retrieval
	// diversification: limit * CandidateMultiplier.
	CandidateMultiplier int

	SimilarityThreshold   float64
	MaxResultsPerFile     int
	EnableDiversification bool
	RankingStrategy       string

	// PostRank configures deduplication and pattern diversification.
	PostRank postrank.Config

	// Batch controls sub-query fan-out in SearchDecomposed.
	Batch batch.Config
}

// DefaultConfig returns sensible search defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:          result.DefaultLimit,
		CandidateMultiplier:   3,
		SimilarityThreshold:   result.DefaultSimilarityThreshold,
		MaxResultsPerFile:     result.DefaultMaxResultsPerFile,
		EnableDiversification: true,
		PostRank:              postrank.DefaultConfig(),
		Batch:                 batch.DefaultConfig(),
	}
}

// Deps are the service's collaborators. Bus is optional.
type Deps struct {
	Embedder Embedder
	Index    VectorIndex
	Content  ContentStore
	Metadata MetadataProvider
	Bus      bus.Bus
}

// Service runs the full search flow: query understanding, retrieval,
// hydration and result processing.
type Service struct {
	cfg         Config
	deps        Deps
	queries     *query.Service
	diversifier *retrieval.Diversifier
	processor   *Processor
	log         *logger.Logger
}

// NewService creates a new search service. Embedder, Index, Content and
// Metadata are required.
func NewService(cfg Config, deps Deps, log *logger.Logger) (*Service, error) {
	if deps.Embedder == nil || deps.Index == nil || deps.Content == nil || deps.Metadata == nil {
		return nil, errors.ValidationError("search service requires an embedder, a vector index, a content store and a metadata provider")
	}
	if log == nil {
		log = logger.Discard()
	}

	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = def.CandidateMultiplier
	}
	if cfg.MaxResultsPerFile <= 0 {
		cfg.MaxResultsPerFile = def.MaxResultsPerFile
	}
	if cfg.Batch.Concurrency <= 0 {
		cfg.Batch = def.Batch
	}

	return &Service{
		cfg:         cfg,
		deps:        deps,
		queries:     query.NewService(log),
		diversifier: retrieval.NewDiversifier(log),
		processor:   NewProcessor(cfg.PostRank, log),
		log:         log.WithComponent("search"),
	}, nil
}

// Processor returns the result processor used by the service.
func (s *Service) Processor() *Processor {
	return s.processor
}

// Request represents a search request.
type Request struct {
	// Query is the search query text.
	Query string `json:"query"`

	// Context describes the caller and workspace.
	Context *query.Context `json:"context,omitempty"`

	// Options override the configured defaults when set.
	Options *result.Options `json:"options,omitempty"`
}

// Response represents a search response.
type Response struct {
	Query    *query.ProcessedQuery    `json:"query"`
	Results  []result.ExplainedResult `json:"results"`
	Stats    result.ProcessingStats   `json:"stats"`
	Metadata SearchMetadata           `json:"metadata"`
}

// SearchMetadata contains information about how the search was performed.
type SearchMetadata struct {
	// SearchTimeMs is the total search time in milliseconds.
	SearchTimeMs int64 `json:"search_time_ms"`

	// EmbedTimeMs is the query embedding time.
	EmbedTimeMs int64 `json:"embed_time_ms"`

	// RetrievalTimeMs is the vector search time.
	RetrievalTimeMs int64 `json:"retrieval_time_ms"`

	// HydrateTimeMs covers content and metadata loading.
	HydrateTimeMs int64 `json:"hydrate_time_ms"`

	// Candidates is the number of matches returned by the index.
	Candidates int `json:"candidates"`

	// Hydrated is the number of candidates with content after retrieval
	// diversification.
	Hydrated int `json:"hydrated"`

	// Dropped counts candidates whose content could not be loaded.
	Dropped int `json:"dropped"`

	// TestsFiltered counts test-file candidates removed because the query
	// does not ask about tests.
	TestsFiltered int `json:"tests_filtered"`
}

// DefaultOptions returns the result options derived from the service config.
func (s *Service) DefaultOptions() result.Options {
	opts := result.DefaultOptions()
	opts.Limit = s.cfg.DefaultLimit
	opts.MaxResultsPerFile = s.cfg.MaxResultsPerFile
	if !s.cfg.EnableDiversification {
		opts.EnableDiversification = result.Bool(false)
	}
	opts.RankingStrategy = s.cfg.RankingStrategy
	opts.SimilarityThreshold = s.cfg.SimilarityThreshold
	return opts
}

// Search processes the query, retrieves and hydrates candidates, and returns
// ranked, diversified and explained results.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	opts := s.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	pq, err := s.queries.ProcessQuery(ctx, req.Query, req.Context)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, bus.TopicQueryProcessed, bus.QueryProcessedPayload{
		Query:      pq.OriginalQuery,
		Enhanced:   pq.EnhancedQuery,
		Intent:     string(pq.Intent.Primary),
		Confidence: pq.Intent.Confidence,
		Complexity: pq.ComplexityScore,
		SubQueries: len(pq.SubQueries),
	})

	resp, err := s.searchProcessed(ctx, pq, opts)
	if err != nil {
		return nil, err
	}
	resp.Metadata.SearchTimeMs = time.Since(start).Milliseconds()

	s.publish(ctx, bus.TopicSearchCompleted, bus.SearchCompletedPayload{
		Query:      pq.OriginalQuery,
		Intent:     string(pq.Intent.Primary),
		Candidates: resp.Metadata.Candidates,
		Results:    len(resp.Results),
		Diversity:  resp.Stats.DiversityScore,
		DurationMs: resp.Metadata.SearchTimeMs,
	})

	s.log.WithContext(ctx).WithQuery(pq.OriginalQuery).Info("Search complete",
		"intent", pq.Intent.Primary,
		"candidates", resp.Metadata.Candidates,
		"results", len(resp.Results),
		"dropped", resp.Metadata.Dropped,
		"duration_ms", resp.Metadata.SearchTimeMs,
	)

	return resp, nil
}

func (s *Service) searchProcessed(ctx context.Context, pq *query.ProcessedQuery, opts result.Options) (*Response, error) {
	log := s.log.WithContext(ctx)
	merged := opts.Merge(pq)
	meta := SearchMetadata{}

	embedStart := time.Now()
	vector, err := s.deps.Embedder.Embed(ctx, pq.EnhancedQuery, pq.Language)
	if err != nil {
		return nil, err
	}
	meta.EmbedTimeMs = time.Since(embedStart).Milliseconds()

	pool := merged.Limit * s.cfg.CandidateMultiplier

	retrievalStart := time.Now()
	candidates, err := s.deps.Index.Query(ctx, vector, qdrant.QueryOptions{
		TopK: pool * 2,
		Filter: qdrant.Filter{
			SnapshotIDs: pq.Filters.SnapshotIDs,
			Languages:   pq.Filters.Languages,
		},
	})
	if err != nil {
		return nil, err
	}
	meta.RetrievalTimeMs = time.Since(retrievalStart).Milliseconds()
	meta.Candidates = len(candidates)

	if !pq.Filters.IncludeTests {
		kept := candidates[:0:0]
		for _, c := range candidates {
			if result.IsTestPath(c.FilePath) {
				meta.TestsFiltered++
				continue
			}
			kept = append(kept, c)
		}
		candidates = kept
	}

	candidates = s.diversifier.Diversify(ctx, candidates, retrieval.Options{
		Limit:     pool,
		Threshold: merged.SimilarityThreshold,
	})

	hydrateStart := time.Now()
	enriched, dropped := s.hydrate(ctx, candidates, merged.ContextRadius)
	meta.HydrateTimeMs = time.Since(hydrateStart).Milliseconds()
	meta.Hydrated = len(enriched)
	meta.Dropped = dropped

	log.Debug("Candidates hydrated",
		"candidates", meta.Candidates,
		"tests_filtered", meta.TestsFiltered,
		"diversified", len(candidates),
		"hydrated", meta.Hydrated,
		"dropped", meta.Dropped,
	)

	out, err := s.processor.ProcessResults(ctx, enriched, pq, opts)
	if err != nil {
		return nil, err
	}

	return &Response{
		Query:    pq,
		Results:  out.Results,
		Stats:    out.Stats,
		Metadata: meta,
	}, nil
}

type fileContent struct {
	lines []string
	found bool
}

// hydrate loads the content and metadata of every candidate. Candidates whose
// file is missing or unreadable are dropped. Each file is read once.
func (s *Service) hydrate(ctx context.Context, candidates []result.CandidateMatch, radius int) ([]result.EnrichedResult, int) {
	log := s.log.WithContext(ctx)
	files := make(map[string]fileContent)
	enriched := make([]result.EnrichedResult, 0, len(candidates))
	dropped := 0

	for _, c := range candidates {
		key := c.FileKey()
		fc, ok := files[key]
		if !ok {
			content, found, err := s.deps.Content.GetFileContent(ctx, c.SnapshotID, c.FilePath)
			if err != nil {
				log.Warn("Failed to load candidate content", "path", c.FilePath, "snapshot", c.SnapshotID, "error", err)
			}
			fc = fileContent{found: err == nil && found}
			if fc.found {
				fc.lines = strings.Split(content, "\n")
			}
			files[key] = fc
		}

		chunk, ok := excerpt(fc, c.StartLine, c.EndLine, 0)
		if !ok {
			dropped++
			continue
		}
		display, _ := excerpt(fc, c.StartLine, c.EndLine, radius)

		quality, enhanced := s.deps.Metadata.Metadata(ctx, c, chunk)
		enriched = append(enriched, result.EnrichedResult{
			CandidateMatch: c,
			Content:        display,
			Quality:        quality,
			Enhanced:       enhanced,
		})
	}

	return enriched, dropped
}

// excerpt returns lines [start-radius, end+radius] of a file, 1-based and
// inclusive. Candidates without a line range get the whole file.
func excerpt(fc fileContent, start, end, radius int) (string, bool) {
	if !fc.found {
		return "", false
	}
	n := len(fc.lines)
	if start <= 0 {
		return strings.Join(fc.lines, "\n"), true
	}
	if start > n {
		return "", false
	}
	if end < start {
		end = start
	}

	from := max(start-radius, 1)
	to := min(end+radius, n)
	return strings.Join(fc.lines[from-1:to], "\n"), true
}

// SubQueryResult is the outcome of one sub-query of a decomposed search.
type SubQueryResult struct {
	SubQuery query.SubQuery `json:"sub_query"`
	Response *Response      `json:"response,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// DecomposedResponse is the result of SearchDecomposed.
type DecomposedResponse struct {
	Query      *query.ProcessedQuery `json:"query"`
	SubQueries []SubQueryResult      `json:"sub_queries"`
	Results    []fusion.FusedResult  `json:"results"`
	Stats      DecomposedSearchStats `json:"stats"`
}

// DecomposedSearchStats summarises a decomposed search.
type DecomposedSearchStats struct {
	SubQueries   int   `json:"sub_queries"`
	Failed       int   `json:"failed"`
	SearchTimeMs int64 `json:"search_time_ms"`
}

// Sub-query weights in the fused ranking.
var priorityWeights = map[query.Priority]float64{
	query.PriorityHigh:   1.0,
	query.PriorityMedium: 0.6,
}

// SearchDecomposed runs each sub-query of a complex query concurrently and
// fuses their results. A query with no sub-queries is searched as a whole.
// Sub-query failures are reported per sub-query; the call fails only when
// every sub-query fails.
func (s *Service) SearchDecomposed(ctx context.Context, req Request) (*DecomposedResponse, error) {
	start := time.Now()

	pq, err := s.queries.ProcessQuery(ctx, req.Query, req.Context)
	if err != nil {
		return nil, err
	}

	subs := pq.SubQueries
	if len(subs) == 0 {
		subs = []query.SubQuery{{Query: pq.OriginalQuery, Intent: pq.Intent, Priority: query.PriorityHigh}}
	}

	results := batch.Run(ctx, s.cfg.Batch, s.log, subs, func(ctx context.Context, sq query.SubQuery) (*Response, error) {
		return s.Search(ctx, Request{Query: sq.Query, Context: req.Context, Options: req.Options})
	})

	out := &DecomposedResponse{
		Query:      pq,
		SubQueries: make([]SubQueryResult, len(subs)),
	}
	lists := make([]fusion.List, 0, len(subs))
	var firstErr error
	for i, r := range results {
		out.SubQueries[i] = SubQueryResult{SubQuery: subs[i]}
		if r.Err != nil {
			out.Stats.Failed++
			out.SubQueries[i].Error = r.Err.Error()
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		out.SubQueries[i].Response = r.Value
		lists = append(lists, fusion.List{
			Name:    subs[i].Query,
			Weight:  priorityWeights[subs[i].Priority],
			Results: r.Value.Results,
		})
	}
	if out.Stats.Failed == len(subs) {
		return nil, firstErr
	}

	opts := s.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	opts = opts.Merge(pq)

	// Each sub-query caps files on its own; the fused set needs the cap again.
	maxPerFile := 0
	if opts.Diversify() {
		maxPerFile = opts.MaxResultsPerFile
	}
	out.Results = fusion.Truncate(fusion.Fuse(lists, fusion.DefaultK), opts.Limit, maxPerFile)
	out.Stats.SubQueries = len(subs)
	out.Stats.SearchTimeMs = time.Since(start).Milliseconds()

	s.log.WithContext(ctx).WithQuery(pq.OriginalQuery).Info("Decomposed search complete",
		"sub_queries", len(subs),
		"failed", out.Stats.Failed,
		"results", len(out.Results),
		"duration_ms", out.Stats.SearchTimeMs,
	)

	return out, nil
}

func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if s.deps.Bus == nil {
		return
	}

	event := bus.NewEvent(topic, "search", payload)
	if id := logger.RequestIDFromContext(ctx); id != "" {
		event = event.WithCorrelation(id)
	}
	if err := s.deps.Bus.Publish(ctx, topic, event); err != nil {
		s.log.WithContext(ctx).Warn("Failed to publish search event", "topic", topic, "error", err)
	}
}
