// Package metrics aggregates pipeline events into counters and histograms
// and renders them in the Prometheus text format.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	value  int64
	labels map[string]string
}

// NewCounter creates a new counter.
func NewCounter(name, help string, labels map[string]string) *Counter {
	if labels == nil {
		labels = make(map[string]string)
	}
	return &Counter{name: name, help: help, labels: labels}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add adds delta to the counter. Negative deltas are ignored.
func (c *Counter) Add(delta int64) {
	if delta < 0 {
		return
	}
	atomic.AddInt64(&c.value, delta)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Help returns the metric help text.
func (c *Counter) Help() string { return c.help }

// Labels returns a copy of the metric labels.
func (c *Counter) Labels() map[string]string {
	return copyLabels(c.labels)
}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	labels  map[string]string

	mu     sync.RWMutex
	counts []int64
	sum    float64
	count  int64
}

// Default histogram buckets.
var (
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	CountBuckets   = []float64{0, 1, 5, 10, 20, 50, 100, 250, 500}
	RatioBuckets   = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}
)

// NewHistogram creates a new histogram. Nil buckets select LatencyBuckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = LatencyBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)

	return &Histogram{
		name:    name,
		help:    help,
		buckets: sorted,
		labels:  make(map[string]string),
		counts:  make([]int64, len(sorted)+1), // +1 for +Inf
	}
}

// Observe adds a single observation. NaN values are dropped.
func (h *Histogram) Observe(value float64) {
	if math.IsNaN(value) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++

	idx := sort.SearchFloat64s(h.buckets, value)
	for i := idx; i < len(h.counts); i++ {
		h.counts[i]++
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Sum returns the sum of all observations.
func (h *Histogram) Sum() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sum
}

// Mean returns the average observation, or 0 when empty.
func (h *Histogram) Mean() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Buckets returns the bucket upper bounds.
func (h *Histogram) Buckets() []float64 {
	return append([]float64(nil), h.buckets...)
}

// BucketCounts returns the cumulative count for each bucket, +Inf last.
func (h *Histogram) BucketCounts() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]int64(nil), h.counts...)
}

// Name returns the metric name.
func (h *Histogram) Name() string { return h.name }

// Help returns the metric help text.
func (h *Histogram) Help() string { return h.help }

// Labels returns a copy of the metric labels.
func (h *Histogram) Labels() map[string]string {
	return copyLabels(h.labels)
}

// CounterVec is a family of counters partitioned by label values.
type CounterVec struct {
	name       string
	help       string
	labelNames []string

	mu       sync.RWMutex
	counters map[string]*Counter
}

// NewCounterVec creates a new counter vector.
func NewCounterVec(name, help string, labelNames []string) *CounterVec {
	return &CounterVec{
		name:       name,
		help:       help,
		labelNames: labelNames,
		counters:   make(map[string]*Counter),
	}
}

// WithLabels returns the counter for the given label values, creating it
// on first use.
func (cv *CounterVec) WithLabels(labelValues ...string) *Counter {
	if len(labelValues) != len(cv.labelNames) {
		panic(fmt.Sprintf("expected %d label values, got %d", len(cv.labelNames), len(labelValues)))
	}

	labels := make(map[string]string, len(cv.labelNames))
	for i, name := range cv.labelNames {
		labels[name] = labelValues[i]
	}
	key := labelsToKey(labels)

	cv.mu.RLock()
	counter, ok := cv.counters[key]
	cv.mu.RUnlock()
	if ok {
		return counter
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()
	if counter, ok := cv.counters[key]; ok {
		return counter
	}
	counter = NewCounter(cv.name, cv.help, labels)
	cv.counters[key] = counter
	return counter
}

// GetAll returns every counter in the vector ordered by label key.
func (cv *CounterVec) GetAll() []*Counter {
	cv.mu.RLock()
	defer cv.mu.RUnlock()

	keys := make([]string, 0, len(cv.counters))
	for k := range cv.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Counter, 0, len(keys))
	for _, k := range keys {
		out = append(out, cv.counters[k])
	}
	return out
}

// Total sums every counter in the vector.
func (cv *CounterVec) Total() int64 {
	var total int64
	for _, c := range cv.GetAll() {
		total += c.Value()
	}
	return total
}

// Name returns the metric name.
func (cv *CounterVec) Name() string { return cv.name }

// Help returns the metric help text.
func (cv *CounterVec) Help() string { return cv.help }

func copyLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// labelsToKey creates a stable key from a label map.
func labelsToKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(labels[k])
	}
	return sb.String()
}
