package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// DefaultTopK is used when a query does not set TopK.
const DefaultTopK = 20

// Query returns the chunks nearest to vector, best first.
func (c *Client) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]result.CandidateMatch, error) {
	if len(vector) == 0 {
		return nil, errors.ValidationError("query vector is required")
	}

	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer c.mu.RUnlock()

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	req := &qdrant.QueryPoints{
		CollectionName: c.collection(),
		Query:          qdrant.NewQueryDense(vector),
		Filter:         buildFilter(opts.Filter),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if opts.ScoreThreshold > 0 {
		req.ScoreThreshold = qdrant.PtrOf(opts.ScoreThreshold)
	}

	points, err := c.client.Query(ctx, req)
	if err != nil {
		return nil, errors.FromGRPC("vector query", err)
	}

	matches := make([]result.CandidateMatch, 0, len(points))
	for _, p := range points {
		matches = append(matches, toCandidate(p))
	}
	return matches, nil
}

// buildFilter converts a Filter into must-conditions, one per non-empty list.
func buildFilter(f Filter) *qdrant.Filter {
	var conditions []*qdrant.Condition

	if len(f.SnapshotIDs) > 0 {
		conditions = append(conditions, keywordsCondition("snapshot_id", f.SnapshotIDs))
	}
	if len(f.Languages) > 0 {
		conditions = append(conditions, keywordsCondition("language", f.Languages))
	}

	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

func keywordsCondition(key string, values []string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keywords{
						Keywords: &qdrant.RepeatedStrings{Strings: values},
					},
				},
			},
		},
	}
}

func toCandidate(p *qdrant.ScoredPoint) result.CandidateMatch {
	return result.CandidateMatch{
		ID:         pointID(p.GetId()),
		FilePath:   getString(p.Payload, "path"),
		SnapshotID: getString(p.Payload, "snapshot_id"),
		Score:      float64(p.Score),
		Language:   getString(p.Payload, "language"),
		StartLine:  getInt(p.Payload, "start_line"),
		EndLine:    getInt(p.Payload, "end_line"),
		Snippet:    getString(p.Payload, "snippet"),
		Symbols:    getStrings(p.Payload, "symbols"),
	}
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	}
	return ""
}

func getString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}

func getInt(payload map[string]*qdrant.Value, key string) int {
	if v, ok := payload[key]; ok {
		if iv, ok := v.Kind.(*qdrant.Value_IntegerValue); ok {
			return int(iv.IntegerValue)
		}
	}
	return 0
}

func getStrings(payload map[string]*qdrant.Value, key string) []string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	lv, ok := v.Kind.(*qdrant.Value_ListValue)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(lv.ListValue.Values))
	for _, item := range lv.ListValue.Values {
		if sv, ok := item.Kind.(*qdrant.Value_StringValue); ok {
			out = append(out, sv.StringValue)
		}
	}
	return out
}
