// metrics.go - In-process metrics for vault operations
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter   MetricType = "counter"
	Gauge     MetricType = "gauge"
	Histogram MetricType = "histogram"
)

// Metric is the last observation of one series.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

const histogramWindow = 1000

// Collector is safe for concurrent use. A nil *Collector discards everything.
type Collector struct {
	mu         sync.RWMutex
	metrics    map[string]*Metric
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

func NewCollector() *Collector {
	c := &Collector{}
	c.Reset()
	return c
}

// IncrementCounter adds one to a counter series.
func (c *Collector) IncrementCounter(name string, labels map[string]string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(name, labels)
	c.counters[key]++
	c.update(key, name, Counter, float64(c.counters[key]), labels)
}

func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(name, labels)
	c.gauges[key] = value
	c.update(key, name, Gauge, value, labels)
}

// RecordHistogram keeps the most recent histogramWindow observations per series.
func (c *Collector) RecordHistogram(name string, value float64, labels map[string]string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(name, labels)
	values := append(c.histograms[key], value)
	if len(values) > histogramWindow {
		values = values[len(values)-histogramWindow:]
	}
	c.histograms[key] = values
	c.update(key, name, Histogram, value, labels)
}

// Counter returns the current value of a counter series.
func (c *Collector) Counter(name string, labels map[string]string) int64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[makeKey(name, labels)]
}

// GetMetric returns the last observation of a series, or nil.
func (c *Collector) GetMetric(name string, labels map[string]string) *Metric {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.metrics[makeKey(name, labels)]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

// Summary returns counters, gauges and histogram aggregates keyed by series.
func (c *Collector) Summary() map[string]interface{} {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	counters := make(map[string]int64, len(c.counters))
	for key, v := range c.counters {
		counters[key] = v
	}
	gauges := make(map[string]float64, len(c.gauges))
	for key, v := range c.gauges {
		gauges[key] = v
	}
	histograms := make(map[string]map[string]float64, len(c.histograms))
	for key, values := range c.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{
			"count": float64(len(values)),
			"min":   values[0],
			"max":   values[0],
			"sum":   0,
		}
		for _, v := range values {
			if v < h["min"] {
				h["min"] = v
			}
			if v > h["max"] {
				h["max"] = v
			}
			h["sum"] += v
		}
		h["avg"] = h["sum"] / h["count"]
		histograms[key] = h
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}

// Reset drops every series.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics = make(map[string]*Metric)
	c.counters = make(map[string]int64)
	c.gauges = make(map[string]float64)
	c.histograms = make(map[string][]float64)
}

func (c *Collector) update(key, name string, t MetricType, value float64, labels map[string]string) {
	c.metrics[key] = &Metric{
		Name:      name,
		Type:      t,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// makeKey sorts label names so the same label set always maps to one series.
func makeKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range names {
		b.WriteString("_")
		b.WriteString(k)
		b.WriteString("_")
		b.WriteString(labels[k])
	}
	return b.String()
}

// Predefined metric names
const (
	MetricOperationCount  = "vault_operation_count"
	MetricErrorCount      = "vault_error_count"
	MetricTotalShares     = "vault_total_shares"
	MetricSharesMinted    = "vault_shares_minted"
	MetricSharesBurned    = "vault_shares_burned"
	MetricVerifyTime      = "zk_verify_time"
	MetricProofGeneration = "zk_proof_generation_time"
)

// RecordOperation counts a completed operation.
func (c *Collector) RecordOperation(op string) {
	c.IncrementCounter(MetricOperationCount, map[string]string{"op": op})
}

func (c *Collector) RecordError(op string, kind string) {
	c.IncrementCounter(MetricErrorCount, map[string]string{"op": op, "kind": kind})
}

func (c *Collector) RecordTotalShares(vault string, total uint64) {
	c.SetGauge(MetricTotalShares, float64(total), map[string]string{"vault": vault})
}

func (c *Collector) RecordMinted(amount uint64) {
	c.RecordHistogram(MetricSharesMinted, float64(amount), nil)
}

func (c *Collector) RecordBurned(amount uint64) {
	c.RecordHistogram(MetricSharesBurned, float64(amount), nil)
}

func (c *Collector) RecordVerify(duration time.Duration) {
	c.RecordHistogram(MetricVerifyTime, duration.Seconds(), nil)
}

func (c *Collector) RecordProofGeneration(duration time.Duration) {
	c.RecordHistogram(MetricProofGeneration, duration.Seconds(), nil)
}
