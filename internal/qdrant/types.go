// Package qdrant adapts the Qdrant Go client to the chunk vector index used
// by search: filtered nearest-neighbour queries and batched upserts.
package qdrant

import (
	"time"
)

// CollectionConfig defines the configuration for creating a chunk collection.
type CollectionConfig struct {
	// Name is the collection name (will be prefixed with "insight_").
	Name string

	// VectorSize is the embedding dimension.
	VectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool

	// IndexingThreshold is the number of vectors before HNSW index is built.
	IndexingThreshold uint64
}

// DefaultCollectionConfig returns defaults for a code chunk collection.
func DefaultCollectionConfig(name string) CollectionConfig {
	return CollectionConfig{
		Name:              name,
		VectorSize:        1536,
		OnDiskPayload:     true,
		IndexingThreshold: 20000,
	}
}

// Point is one chunk embedding to upsert.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Payload is the filterable metadata stored with a chunk vector.
type Payload struct {
	SnapshotID string    `json:"snapshot_id"`
	Path       string    `json:"path"`
	Language   string    `json:"language"`
	Symbols    []string  `json:"symbols"`
	StartLine  int       `json:"start_line"`
	EndLine    int       `json:"end_line"`
	Snippet    string    `json:"snippet"`
	ChunkHash  string    `json:"chunk_hash"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Filter restricts a query to snapshots and languages. Empty lists match all.
type Filter struct {
	SnapshotIDs []string
	Languages   []string
}

// QueryOptions control a nearest-neighbour query.
type QueryOptions struct {
	TopK   int
	Filter Filter

	// ScoreThreshold drops matches scoring below it (0 disables).
	ScoreThreshold float32
}

// CollectionInfo contains information about a collection.
type CollectionInfo struct {
	Name          string
	PointsCount   uint64
	Status        string
	SegmentsCount uint64
}
