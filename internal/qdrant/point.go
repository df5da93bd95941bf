package qdrant

import (
	"context"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

// DefaultUpsertBatch bounds the points sent in one upsert request.
const DefaultUpsertBatch = 100

// Upsert inserts or replaces points, batching large writes.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	for start := 0; start < len(points); start += DefaultUpsertBatch {
		end := min(start+DefaultUpsertBatch, len(points))
		if err := c.upsert(ctx, points[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) upsert(ctx context.Context, points []Point) error {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.mu.RUnlock()

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) == 0 {
			return errors.ValidationError("point has no vector").WithDetail("id", p.ID)
		}
		structs = append(structs, pointToQdrant(p))
	}

	_, err = c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection(),
		Points:         structs,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return errors.FromGRPC("upsert points", err)
	}
	return nil
}

// DeleteSnapshot removes every point of a snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	if snapshotID == "" {
		return errors.ValidationError("snapshot id is required")
	}

	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.mu.RUnlock()

	_, err = c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection(),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: buildFilter(Filter{SnapshotIDs: []string{snapshotID}}),
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return errors.FromGRPC("delete snapshot", err)
	}
	return nil
}

func pointToQdrant(p Point) *qdrant.PointStruct {
	symbols := make([]any, len(p.Payload.Symbols))
	for i, s := range p.Payload.Symbols {
		symbols[i] = s
	}

	payload := map[string]any{
		"snapshot_id": p.Payload.SnapshotID,
		"path":        p.Payload.Path,
		"language":    p.Payload.Language,
		"symbols":     symbols,
		"start_line":  int64(p.Payload.StartLine),
		"end_line":    int64(p.Payload.EndLine),
		"snippet":     p.Payload.Snippet,
		"chunk_hash":  p.Payload.ChunkHash,
		"indexed_at":  p.Payload.IndexedAt.Format(time.RFC3339),
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(p.ID),
		Vectors: qdrant.NewVectorsDense(p.Vector),
		Payload: qdrant.NewValueMap(payload),
	}
}
