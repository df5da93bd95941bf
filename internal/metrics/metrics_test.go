package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ricesearch/rice-insight/internal/bus"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

func TestCounter(t *testing.T) {
	c := NewCounter("test_counter", "A test counter", nil)

	c.Inc()
	c.Add(5)
	c.Add(-10)
	if c.Value() != 6 {
		t.Errorf("expected 6, got %d", c.Value())
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("test_histogram", "A test histogram", []float64{10, 1, 5})

	for _, v := range []float64{0.5, 1, 7, 50} {
		h.Observe(v)
	}

	if h.Count() != 4 {
		t.Errorf("expected count 4, got %d", h.Count())
	}
	if h.Sum() != 58.5 {
		t.Errorf("expected sum 58.5, got %f", h.Sum())
	}

	want := []int64{2, 2, 3, 4}
	got := h.BucketCounts()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if b := h.Buckets(); b[0] != 1 || b[2] != 10 {
		t.Errorf("expected sorted buckets, got %v", b)
	}
}

func TestHistogram_Empty(t *testing.T) {
	h := NewHistogram("empty", "", nil)
	if h.Mean() != 0 {
		t.Errorf("expected mean 0, got %f", h.Mean())
	}
	if len(h.Buckets()) != len(LatencyBuckets) {
		t.Errorf("expected default buckets")
	}
}

func TestCounterVec(t *testing.T) {
	cv := NewCounterVec("requests", "", []string{"intent"})
	cv.WithLabels("debug_issue").Inc()
	cv.WithLabels("debug_issue").Inc()
	cv.WithLabels("find_usage").Inc()

	if cv.Total() != 3 {
		t.Errorf("expected total 3, got %d", cv.Total())
	}
	all := cv.GetAll()
	if len(all) != 2 || all[0].Labels()["intent"] != "debug_issue" {
		t.Errorf("unexpected series order: %v", all)
	}
}

func TestCounterVec_WrongLabelCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewCounterVec("x", "", []string{"a", "b"}).WithLabels("only-one")
}

func TestPrometheusFormat(t *testing.T) {
	m := New()
	m.RecordQuery("debug_issue", 0.85, 0.4, 2)
	m.RecordSearch("debug_issue", 12, 30, 10, 0.6)
	m.RecordIndex(4, 20, 1, 150)

	out := m.PrometheusFormat()
	for _, want := range []string{
		"# TYPE rice_insight_queries_processed_total counter",
		`rice_insight_queries_processed_total{intent="debug_issue"} 1`,
		"rice_insight_sub_queries_total 2",
		`rice_insight_search_latency_ms_bucket{le="25"} 1`,
		"rice_insight_search_latency_ms_count 1",
		"rice_insight_indexed_chunks_total 20",
		"rice_insight_index_failures_total 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "rice_insight_event_decode_errors_total") {
		t.Error("empty counter vector should not be written")
	}
}

func TestEscapeString(t *testing.T) {
	if got := escapeString("a\"b\\c\nd"); got != `a\"b\\c\nd` {
		t.Errorf("unexpected escape: %s", got)
	}
}

func TestEventSubscriber(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemoryBus(logger.New("error", "text"))
	m := New()
	if err := NewEventSubscriber(m, b).SubscribeToEvents(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	events := []struct {
		topic   string
		payload any
	}{
		{bus.TopicQueryProcessed, bus.QueryProcessedPayload{Intent: "find_usage", Confidence: 0.8, Complexity: 0.2, SubQueries: 0}},
		{bus.TopicSearchCompleted, bus.SearchCompletedPayload{Intent: "find_usage", Candidates: 20, Results: 5, Diversity: 0.5, DurationMs: 40}},
		// Kafka delivers decoded JSON maps.
		{bus.TopicIndexCompleted, map[string]any{"snapshot_id": "s1", "files": float64(3), "chunks": float64(9), "failed": float64(0), "duration_ms": float64(70)}},
		{bus.TopicIndexCompleted, "not a payload"},
	}
	for _, e := range events {
		if err := b.Publish(ctx, e.topic, bus.NewEvent(e.topic, "test", e.payload)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if !b.Drain(time.Second) {
		t.Fatal("handlers did not finish")
	}

	s := m.Summary()
	if s.Queries != 1 || s.QueriesByIntent["find_usage"] != 1 {
		t.Errorf("unexpected query counts: %+v", s)
	}
	if s.Searches != 1 || s.AvgResults != 5 || s.AvgSearchMs != 40 {
		t.Errorf("unexpected search metrics: %+v", s)
	}
	if s.IndexRuns != 1 || s.IndexedFiles != 3 || s.IndexedChunks != 9 {
		t.Errorf("unexpected index metrics: %+v", s)
	}
	if s.EventDecodeErrors != 1 {
		t.Errorf("expected 1 decode error, got %d", s.EventDecodeErrors)
	}
}
