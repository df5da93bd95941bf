package metrics

import (
	"time"
)

// Metrics holds the pipeline metrics.
type Metrics struct {
	// Query understanding
	QueriesProcessed *CounterVec // labels: intent
	QueryComplexity  *Histogram
	QueryConfidence  *Histogram
	SubQueries       *Counter

	// Search
	SearchRequests   *CounterVec // labels: intent
	SearchLatency    *Histogram
	SearchCandidates *Histogram
	SearchResults    *Histogram
	SearchDiversity  *Histogram

	// Indexing
	IndexRuns     *Counter
	IndexedFiles  *Counter
	IndexedChunks *Counter
	IndexFailures *Counter
	IndexLatency  *Histogram

	// Events that could not be decoded.
	DecodeErrors *CounterVec // labels: topic

	startTime time.Time
}

// New creates the metric set.
func New() *Metrics {
	return &Metrics{
		QueriesProcessed: NewCounterVec("rice_insight_queries_processed_total", "Queries processed by query understanding", []string{"intent"}),
		QueryComplexity:  NewHistogram("rice_insight_query_complexity", "Query complexity score", RatioBuckets),
		QueryConfidence:  NewHistogram("rice_insight_query_intent_confidence", "Intent classification confidence", RatioBuckets),
		SubQueries:       NewCounter("rice_insight_sub_queries_total", "Sub-queries produced by decomposition", nil),

		SearchRequests:   NewCounterVec("rice_insight_search_requests_total", "Completed searches", []string{"intent"}),
		SearchLatency:    NewHistogram("rice_insight_search_latency_ms", "Search latency in milliseconds", LatencyBuckets),
		SearchCandidates: NewHistogram("rice_insight_search_candidates", "Candidates retrieved per search", CountBuckets),
		SearchResults:    NewHistogram("rice_insight_search_results", "Results returned per search", CountBuckets),
		SearchDiversity:  NewHistogram("rice_insight_search_diversity", "Diversity score of the result set", RatioBuckets),

		IndexRuns:     NewCounter("rice_insight_index_runs_total", "Completed indexing runs", nil),
		IndexedFiles:  NewCounter("rice_insight_indexed_files_total", "Files indexed", nil),
		IndexedChunks: NewCounter("rice_insight_indexed_chunks_total", "Chunks indexed", nil),
		IndexFailures: NewCounter("rice_insight_index_failures_total", "Files that failed to index", nil),
		IndexLatency:  NewHistogram("rice_insight_index_latency_ms", "Indexing run latency in milliseconds", LatencyBuckets),

		DecodeErrors: NewCounterVec("rice_insight_event_decode_errors_total", "Events whose payload could not be decoded", []string{"topic"}),

		startTime: time.Now(),
	}
}

// RecordQuery records one processed query.
func (m *Metrics) RecordQuery(intent string, confidence, complexity float64, subQueries int) {
	m.QueriesProcessed.WithLabels(intent).Inc()
	m.QueryConfidence.Observe(confidence)
	m.QueryComplexity.Observe(complexity)
	m.SubQueries.Add(int64(subQueries))
}

// RecordSearch records one completed search.
func (m *Metrics) RecordSearch(intent string, latencyMs int64, candidates, results int, diversity float64) {
	m.SearchRequests.WithLabels(intent).Inc()
	m.SearchLatency.Observe(float64(latencyMs))
	m.SearchCandidates.Observe(float64(candidates))
	m.SearchResults.Observe(float64(results))
	m.SearchDiversity.Observe(diversity)
}

// RecordIndex records one indexing run.
func (m *Metrics) RecordIndex(files, chunks, failed int, latencyMs int64) {
	m.IndexRuns.Inc()
	m.IndexedFiles.Add(int64(files))
	m.IndexedChunks.Add(int64(chunks))
	m.IndexFailures.Add(int64(failed))
	m.IndexLatency.Observe(float64(latencyMs))
}

// Summary is a point-in-time digest of the metrics.
type Summary struct {
	Uptime            time.Duration    `json:"uptime"`
	Queries           int64            `json:"queries"`
	QueriesByIntent   map[string]int64 `json:"queries_by_intent"`
	AvgComplexity     float64          `json:"avg_complexity"`
	Searches          int64            `json:"searches"`
	AvgSearchMs       float64          `json:"avg_search_ms"`
	AvgResults        float64          `json:"avg_results"`
	AvgDiversity      float64          `json:"avg_diversity"`
	IndexRuns         int64            `json:"index_runs"`
	IndexedFiles      int64            `json:"indexed_files"`
	IndexedChunks     int64            `json:"indexed_chunks"`
	IndexFailures     int64            `json:"index_failures"`
	EventDecodeErrors int64            `json:"event_decode_errors"`
}

// Summary returns a digest of the current metric values.
func (m *Metrics) Summary() Summary {
	byIntent := make(map[string]int64)
	for _, c := range m.QueriesProcessed.GetAll() {
		byIntent[c.Labels()["intent"]] = c.Value()
	}

	return Summary{
		Uptime:            time.Since(m.startTime),
		Queries:           m.QueriesProcessed.Total(),
		QueriesByIntent:   byIntent,
		AvgComplexity:     m.QueryComplexity.Mean(),
		Searches:          m.SearchRequests.Total(),
		AvgSearchMs:       m.SearchLatency.Mean(),
		AvgResults:        m.SearchResults.Mean(),
		AvgDiversity:      m.SearchDiversity.Mean(),
		IndexRuns:         m.IndexRuns.Value(),
		IndexedFiles:      m.IndexedFiles.Value(),
		IndexedChunks:     m.IndexedChunks.Value(),
		IndexFailures:     m.IndexFailures.Value(),
		EventDecodeErrors: m.DecodeErrors.Total(),
	}
}
