package qdrant

import (
	"context"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

// payloadIndexes are the payload fields queries filter on.
var payloadIndexes = []struct {
	field  string
	schema qdrant.FieldType
}{
	{"snapshot_id", qdrant.FieldType_FieldTypeKeyword},
	{"language", qdrant.FieldType_FieldTypeKeyword},
	{"path", qdrant.FieldType_FieldTypeKeyword},
}

// EnsureCollection creates the configured collection when it does not exist.
// cfg.Name is ignored in favour of the client's collection.
func (c *Client) EnsureCollection(ctx context.Context, cfg CollectionConfig) error {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.mu.RUnlock()

	name := c.collection()

	exists, err := c.client.CollectionExists(ctx, name)
	if err != nil {
		return errors.FromGRPC("check collection", err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
		OnDiskPayload: qdrant.PtrOf(cfg.OnDiskPayload),
		OptimizersConfig: &qdrant.OptimizersConfigDiff{
			IndexingThreshold: qdrant.PtrOf(cfg.IndexingThreshold),
		},
	})
	if err != nil {
		return errors.FromGRPC("create collection "+name, err)
	}

	for _, idx := range payloadIndexes {
		_, err := c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      idx.field,
			FieldType:      qdrant.PtrOf(idx.schema),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return errors.FromGRPC("create index on "+idx.field, err)
		}
	}

	return nil
}

// CollectionInfo returns point and segment counts of the configured collection.
func (c *Client) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer c.mu.RUnlock()

	info, err := c.client.GetCollectionInfo(ctx, c.collection())
	if err != nil {
		return nil, errors.FromGRPC("collection info", err)
	}

	status := "unknown"
	switch info.Status {
	case qdrant.CollectionStatus_Green:
		status = "green"
	case qdrant.CollectionStatus_Yellow:
		status = "yellow"
	case qdrant.CollectionStatus_Red:
		status = "red"
	}

	var points uint64
	if info.PointsCount != nil {
		points = *info.PointsCount
	}

	return &CollectionInfo{
		Name:          c.config.Collection,
		PointsCount:   points,
		Status:        status,
		SegmentsCount: uint64(info.SegmentsCount),
	}, nil
}
