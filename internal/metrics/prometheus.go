package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PrometheusFormat exports all metrics in Prometheus text exposition format.
// See: https://prometheus.io/docs/instrumenting/exposition_formats/
func (m *Metrics) PrometheusFormat() string {
	var sb strings.Builder

	writeCounterVec(&sb, m.QueriesProcessed)
	writeHistogram(&sb, m.QueryComplexity)
	writeHistogram(&sb, m.QueryConfidence)
	writeCounter(&sb, m.SubQueries)

	writeCounterVec(&sb, m.SearchRequests)
	writeHistogram(&sb, m.SearchLatency)
	writeHistogram(&sb, m.SearchCandidates)
	writeHistogram(&sb, m.SearchResults)
	writeHistogram(&sb, m.SearchDiversity)

	writeCounter(&sb, m.IndexRuns)
	writeCounter(&sb, m.IndexedFiles)
	writeCounter(&sb, m.IndexedChunks)
	writeCounter(&sb, m.IndexFailures)
	writeHistogram(&sb, m.IndexLatency)

	writeCounterVec(&sb, m.DecodeErrors)

	return sb.String()
}

func writeHeader(sb *strings.Builder, name, help, kind string) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, kind)
}

func writeCounter(sb *strings.Builder, c *Counter) {
	writeHeader(sb, c.Name(), c.Help(), "counter")
	sb.WriteString(c.Name())
	writeLabels(sb, c.Labels())
	fmt.Fprintf(sb, " %d\n", c.Value())
}

func writeHistogram(sb *strings.Builder, h *Histogram) {
	writeHeader(sb, h.Name(), h.Help(), "histogram")

	buckets := h.Buckets()
	counts := h.BucketCounts()
	for i, bucket := range buckets {
		fmt.Fprintf(sb, "%s_bucket{le=\"%s\"} %d\n", h.Name(), formatFloat(bucket), counts[i])
	}
	fmt.Fprintf(sb, "%s_bucket{le=\"+Inf\"} %d\n", h.Name(), counts[len(counts)-1])
	fmt.Fprintf(sb, "%s_sum %s\n", h.Name(), formatFloat(h.Sum()))
	fmt.Fprintf(sb, "%s_count %d\n", h.Name(), h.Count())
}

// writeCounterVec skips vectors with no series.
func writeCounterVec(sb *strings.Builder, cv *CounterVec) {
	counters := cv.GetAll()
	if len(counters) == 0 {
		return
	}

	writeHeader(sb, cv.Name(), cv.Help(), "counter")
	for _, c := range counters {
		sb.WriteString(c.Name())
		writeLabels(sb, c.Labels())
		fmt.Fprintf(sb, " %d\n", c.Value())
	}
}

// writeLabels writes labels as {key="value",key2="value2"}.
func writeLabels(sb *strings.Builder, labels map[string]string) {
	if len(labels) == 0 {
		return
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(sb, "%s=\"%s\"", k, escapeString(labels[k]))
	}
	sb.WriteString("}")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// escapeString escapes special characters in label values.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
