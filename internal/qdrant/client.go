package qdrant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

const (
	// CollectionPrefix is prepended to all collection names.
	CollectionPrefix = "insight_"

	// DefaultHost is the default Qdrant host.
	DefaultHost = "localhost"

	// DefaultPort is the default Qdrant gRPC port.
	DefaultPort = 6334

	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "chunks"

	// DefaultTimeout is the default operation timeout.
	DefaultTimeout = 30 * time.Second
)

// ClientConfig holds configuration for the Qdrant client.
type ClientConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// Collection is the chunk collection queried and written (unprefixed).
	Collection string

	// Timeout bounds every operation.
	Timeout time.Duration
}

// DefaultClientConfig returns sensible defaults for local development.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:       DefaultHost,
		Port:       DefaultPort,
		Collection: DefaultCollection,
		Timeout:    DefaultTimeout,
	}
}

// Client is the chunk vector index backed by one Qdrant collection.
type Client struct {
	client *qdrant.Client
	config ClientConfig
	mu     sync.RWMutex
	closed bool
}

// NewClient creates a new Qdrant client wrapper.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.client.Close()
}

// HealthCheck verifies the Qdrant server is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.mu.RUnlock()

	if _, err := c.client.HealthCheck(ctx); err != nil {
		return errors.FromGRPC("qdrant health check", err)
	}
	return nil
}

// begin read-locks the client and applies the operation timeout. On success
// the caller must cancel and release the lock.
func (c *Client) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, nil, errors.ServiceUnavailableError("qdrant client")
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	return ctx, cancel, nil
}

// collection returns the full name of the configured collection.
func (c *Client) collection() string {
	return collectionName(c.config.Collection)
}

func collectionName(name string) string {
	return CollectionPrefix + name
}
