// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Bus       BusConfig       `yaml:"bus"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
	Batch     BatchConfig     `yaml:"batch"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RICE_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RICE_LOG_FORMAT" yaml:"format"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host       string        `envconfig:"QDRANT_HOST" yaml:"host"`
	Port       int           `envconfig:"QDRANT_PORT" yaml:"port"`
	APIKey     string        `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	UseTLS     bool          `envconfig:"QDRANT_USE_TLS" yaml:"use_tls"`
	Collection string        `envconfig:"QDRANT_COLLECTION" yaml:"collection"`
	Timeout    time.Duration `envconfig:"QDRANT_TIMEOUT" yaml:"timeout"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider   string `envconfig:"RICE_EMBED_PROVIDER" yaml:"provider"` // openai, hashing
	APIKey     string `envconfig:"OPENAI_API_KEY" yaml:"api_key"`
	BaseURL    string `envconfig:"RICE_EMBED_BASE_URL" yaml:"base_url"`
	Model      string `envconfig:"RICE_EMBED_MODEL" yaml:"model"`
	Dimensions int    `envconfig:"RICE_EMBED_DIM" yaml:"dimensions"`

	CacheSize         int     `envconfig:"RICE_EMBED_CACHE_SIZE" yaml:"cache_size"` // 0 = no cache
	RequestsPerSecond float64 `envconfig:"RICE_EMBED_RPS" yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `envconfig:"RICE_EMBED_BURST" yaml:"burst"`
}

// StoreConfig selects where chunk content and metadata live.
type StoreConfig struct {
	Type      string `envconfig:"RICE_STORE_TYPE" yaml:"type"` // memory, redis
	RedisURL  string `envconfig:"RICE_REDIS_URL" yaml:"redis_url"`
	KeyPrefix string `envconfig:"RICE_REDIS_PREFIX" yaml:"key_prefix"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"RICE_BUS_TYPE" yaml:"type"` // memory, kafka
	KafkaBrokers string `envconfig:"RICE_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"RICE_KAFKA_GROUP" yaml:"kafka_group"`
}

// SearchConfig holds search pipeline defaults.
type SearchConfig struct {
	DefaultLimit          int     `envconfig:"RICE_DEFAULT_LIMIT" yaml:"default_limit"`
	SimilarityThreshold   float64 `envconfig:"RICE_SIMILARITY_THRESHOLD" yaml:"similarity_threshold"`
	MaxResultsPerFile     int     `envconfig:"RICE_MAX_RESULTS_PER_FILE" yaml:"max_results_per_file"`
	EnableDiversification bool    `envconfig:"RICE_ENABLE_DIVERSIFICATION" yaml:"enable_diversification"`
	RankingStrategy       string  `envconfig:"RICE_RANKING_STRATEGY" yaml:"ranking_strategy"`
	CandidateMultiplier   int     `envconfig:"RICE_CANDIDATE_MULTIPLIER" yaml:"candidate_multiplier"`
	EnableDedup           bool    `envconfig:"RICE_ENABLE_DEDUP" yaml:"enable_dedup"`
	DedupThreshold        float64 `envconfig:"RICE_DEDUP_THRESHOLD" yaml:"dedup_threshold"`
}

// IndexConfig holds indexing settings.
type IndexConfig struct {
	ChunkLines   int `envconfig:"RICE_CHUNK_LINES" yaml:"chunk_lines"`
	ChunkOverlap int `envconfig:"RICE_CHUNK_OVERLAP" yaml:"chunk_overlap"`
	Workers      int `envconfig:"RICE_INDEX_WORKERS" yaml:"workers"`
}

// BatchConfig holds batch search settings.
type BatchConfig struct {
	Concurrency    int           `envconfig:"RICE_BATCH_CONCURRENCY" yaml:"concurrency"`
	Timeout        time.Duration `envconfig:"RICE_BATCH_TIMEOUT" yaml:"timeout"`
	MaxRetries     int           `envconfig:"RICE_BATCH_MAX_RETRIES" yaml:"max_retries"`
	InitialBackoff time.Duration `envconfig:"RICE_BATCH_BACKOFF" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `envconfig:"RICE_BATCH_MAX_BACKOFF" yaml:"max_backoff"`
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in increasing priority.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "chunks",
			Timeout:    30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:          "hashing",
			Model:             "text-embedding-3-small",
			Dimensions:        256,
			CacheSize:         10000,
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Store: StoreConfig{
			Type:      "memory",
			RedisURL:  "redis://localhost:6379/0",
			KeyPrefix: "rice:insight:",
		},
		Bus: BusConfig{
			Type: "memory",
		},
		Search: SearchConfig{
			DefaultLimit:          10,
			SimilarityThreshold:   0.5,
			MaxResultsPerFile:     3,
			EnableDiversification: true,
			CandidateMultiplier:   3,
			EnableDedup:           true,
			DedupThreshold:        0.85,
		},
		Index: IndexConfig{
			ChunkLines:   40,
			ChunkOverlap: 5,
			Workers:      4,
		},
		Batch: BatchConfig{
			Concurrency:    4,
			Timeout:        30 * time.Second,
			MaxRetries:     2,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		},
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		errs = append(errs, "qdrant port must be between 1 and 65535")
	}

	switch c.Embedding.Provider {
	case "hashing":
	case "openai":
		if c.Embedding.APIKey == "" && c.Embedding.BaseURL == "" {
			errs = append(errs, "openai embedding provider needs an api_key or base_url")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid embedding provider: %s (must be openai or hashing)", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 1 {
		errs = append(errs, "embedding dimensions must be positive")
	}
	if c.Embedding.CacheSize < 0 {
		errs = append(errs, "embedding cache_size must not be negative")
	}
	if c.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, "embedding requests_per_second must not be negative")
	}

	validStores := map[string]bool{"memory": true, "redis": true}
	if !validStores[c.Store.Type] {
		errs = append(errs, fmt.Sprintf("invalid store type: %s (must be memory or redis)", c.Store.Type))
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}
	if c.Bus.Type == "kafka" && strings.TrimSpace(c.Bus.KafkaBrokers) == "" {
		errs = append(errs, "kafka bus requires kafka_brokers")
	}

	if c.Search.DefaultLimit < 1 {
		errs = append(errs, "default_limit must be positive")
	}
	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold > 1 {
		errs = append(errs, "similarity_threshold must be between 0 and 1")
	}
	if c.Search.MaxResultsPerFile < 1 {
		errs = append(errs, "max_results_per_file must be positive")
	}
	if c.Search.CandidateMultiplier < 1 {
		errs = append(errs, "candidate_multiplier must be positive")
	}
	if c.Search.DedupThreshold <= 0 || c.Search.DedupThreshold > 1 {
		errs = append(errs, "dedup_threshold must be in (0, 1]")
	}
	validStrategies := map[string]bool{"": true, "relevance": true, "quality": true, "recency": true, "usage": true, "balanced": true}
	if !validStrategies[c.Search.RankingStrategy] {
		errs = append(errs, fmt.Sprintf("invalid ranking strategy: %s", c.Search.RankingStrategy))
	}

	if c.Index.ChunkLines < 5 {
		errs = append(errs, "chunk_lines must be at least 5")
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkLines {
		errs = append(errs, "chunk_overlap must be non-negative and less than chunk_lines")
	}
	if c.Index.Workers < 1 {
		errs = append(errs, "index workers must be positive")
	}

	if c.Batch.Concurrency < 1 {
		errs = append(errs, "batch concurrency must be positive")
	}
	if c.Batch.MaxRetries < 0 {
		errs = append(errs, "batch max_retries must not be negative")
	}
	if c.Batch.Timeout < 0 {
		errs = append(errs, "batch timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
