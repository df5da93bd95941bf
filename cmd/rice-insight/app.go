package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-insight/internal/batch"
	"github.com/ricesearch/rice-insight/internal/bus"
	"github.com/ricesearch/rice-insight/internal/config"
	"github.com/ricesearch/rice-insight/internal/index"
	"github.com/ricesearch/rice-insight/internal/metadata"
	"github.com/ricesearch/rice-insight/internal/metrics"
	"github.com/ricesearch/rice-insight/internal/ml"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/qdrant"
	"github.com/ricesearch/rice-insight/internal/search"
	"github.com/ricesearch/rice-insight/internal/search/postrank"
	"github.com/ricesearch/rice-insight/internal/store"
)

// loadConfig reads the config file named by --config and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

// app holds the connected backends shared by search and index commands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	embedder ml.Embedder
	qdrant   *qdrant.Client
	content  store.Store
	metadata metadata.Store
	bus      bus.Bus
	metrics  *metrics.Metrics

	// metricsOut receives the Prometheus dump on Close when set.
	metricsOut string
}

// connect wires config into the embedder, vector index, stores and event bus.
func connect(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	a.metricsOut, _ = cmd.Flags().GetString("metrics-out")
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	embedder, dims, err := ml.NewEmbedder(cfg.Embedding, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a.embedder = embedder

	a.bus, err = bus.NewBus(cfg.Bus, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	if err := metrics.NewEventSubscriber(a.metrics, a.bus).SubscribeToEvents(ctx); err != nil {
		return nil, err
	}

	switch cfg.Store.Type {
	case "redis":
		client, err := store.NewRedisClient(ctx, cfg.Store.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.content = store.NewRedisStore(client, cfg.Store.KeyPrefix)
		a.metadata = metadata.NewRedisStore(client, cfg.Store.KeyPrefix)
	default:
		a.content = store.NewMemoryStore()
		a.metadata = metadata.NewMemoryStore()
	}

	a.qdrant, err = qdrant.NewClient(qdrant.ClientConfig{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
		Timeout:    cfg.Qdrant.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	collection := qdrant.DefaultCollectionConfig(cfg.Qdrant.Collection)
	collection.VectorSize = uint64(dims)
	if err := a.qdrant.EnsureCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("failed to prepare collection: %w", err)
	}

	log.Debug("Backends connected",
		"embedding", cfg.Embedding.Provider,
		"dimensions", dims,
		"store", cfg.Store.Type,
		"bus", cfg.Bus.Type,
		"qdrant", fmt.Sprintf("%s:%d", cfg.Qdrant.Host, cfg.Qdrant.Port),
	)

	ok = true
	return a, nil
}

// settle waits for in-process event handlers so metrics are current.
func (a *app) settle() {
	if mb, ok := a.bus.(*bus.MemoryBus); ok {
		mb.Drain(5 * time.Second)
	}
}

// Close releases every backend that was opened.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn("Failed to close event bus", "error", err)
		}
	}
	a.flushMetrics()
	if a.qdrant != nil {
		if err := a.qdrant.Close(); err != nil {
			a.log.Warn("Failed to close Qdrant client", "error", err)
		}
	}
	if a.content != nil {
		if err := a.content.Close(); err != nil {
			a.log.Warn("Failed to close content store", "error", err)
		}
	}
}

func (a *app) flushMetrics() {
	if a.metrics == nil {
		return
	}
	s := a.metrics.Summary()
	a.log.Debug("Session metrics",
		"queries", s.Queries,
		"searches", s.Searches,
		"avg_search_ms", s.AvgSearchMs,
		"indexed_files", s.IndexedFiles,
		"indexed_chunks", s.IndexedChunks,
	)
	if cached, ok := a.embedder.(*ml.CachedEmbedder); ok {
		cs := cached.Stats()
		a.log.Debug("Embedding cache", "size", cs.Size, "hits", cs.Hits, "misses", cs.Misses)
	}

	if a.metricsOut == "" {
		return
	}
	if err := os.WriteFile(a.metricsOut, []byte(a.metrics.PrometheusFormat()), 0o644); err != nil {
		a.log.Warn("Failed to write metrics", "path", a.metricsOut, "error", err)
	}
}

func batchConfig(cfg config.BatchConfig) batch.Config {
	return batch.Config{
		Concurrency:    cfg.Concurrency,
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	}
}

func (a *app) searchService() (*search.Service, error) {
	sc := a.cfg.Search
	return search.NewService(search.Config{
		DefaultLimit:          sc.DefaultLimit,
		CandidateMultiplier:   sc.CandidateMultiplier,
		SimilarityThreshold:   sc.SimilarityThreshold,
		MaxResultsPerFile:     sc.MaxResultsPerFile,
		EnableDiversification: sc.EnableDiversification,
		RankingStrategy:       sc.RankingStrategy,
		PostRank: postrank.Config{
			EnableDedup:    sc.EnableDedup,
			DedupThreshold: sc.DedupThreshold,
			LookAhead:      postrank.DefaultLookAhead,
		},
		Batch: batchConfig(a.cfg.Batch),
	}, search.Deps{
		Embedder: a.embedder,
		Index:    a.qdrant,
		Content:  a.content,
		Metadata: metadata.NewProvider(a.metadata, a.log),
		Bus:      a.bus,
	}, a.log)
}

func (a *app) indexer() (*index.Indexer, error) {
	bc := batchConfig(a.cfg.Batch)
	bc.Concurrency = a.cfg.Index.Workers

	return index.NewIndexer(index.Config{
		ChunkLines:   a.cfg.Index.ChunkLines,
		ChunkOverlap: a.cfg.Index.ChunkOverlap,
		MaxFileSize:  index.MaxDocumentSize,
		Batch:        bc,
	}, index.Deps{
		Embedder: a.embedder,
		Vectors:  a.qdrant,
		Content:  a.content,
		Metadata: a.metadata,
		Bus:      a.bus,
	}, a.log)
}
