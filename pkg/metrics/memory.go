// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package metrics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	hmetrics "github.com/hashicorp/go-metrics"
)

var (
	// AggregationInterval is the interval to aggregate metrics.
	AggregationInterval = 10 * time.Second

	// RetentionPeriod is the retention period of metrics.
	RetentionPeriod = 10 * time.Minute
)

// MemoryMetrics is a metrics collector that stores metrics in memory.
type MemoryMetrics struct {
	sink *hmetrics.InmemSink
}

var _ Metrics = &MemoryMetrics{}

// RecordHit records a hit and the bytes it served.
func (m *MemoryMetrics) RecordHit(tier string, bytes int) {
	m.sink.IncrCounter([]string{"hits", tier}, 1)
	m.sink.IncrCounter([]string{"hit_bytes", tier}, float32(bytes))
}

// RecordMiss records a miss.
func (m *MemoryMetrics) RecordMiss() {
	m.sink.IncrCounter([]string{"misses"}, 1)
}

// RecordWrite records the bytes stored in a tier.
func (m *MemoryMetrics) RecordWrite(tier string, bytes int) {
	m.sink.IncrCounter([]string{"write_bytes", tier}, float32(bytes))
}

// RecordEviction records an eviction from a tier.
func (m *MemoryMetrics) RecordEviction(tier string, bytes int64) {
	m.sink.IncrCounter([]string{"evictions", tier}, 1)
}

// RecordReject records a refused write.
func (m *MemoryMetrics) RecordReject(reason string) {
	m.sink.IncrCounter([]string{"rejects", reason}, 1)
}

// RecordOperation records the latency of an operation.
func (m *MemoryMetrics) RecordOperation(op string, duration float64) {
	m.sink.AddSample([]string{"latency", op}, float32(duration))
}

// summary aggregates a metric over all retained intervals.
type summary struct {
	count    int
	sum      float64
	min, max float64
}

func (s *summary) add(a *hmetrics.AggregateSample) {
	if s.count == 0 {
		s.min, s.max = math.Inf(1), math.Inf(-1)
	}
	s.count += a.Count
	s.sum += a.Sum
	s.min = math.Min(s.min, a.Min)
	s.max = math.Max(s.max, a.Max)
}

// Report writes the counters and samples retained by the sink, one line per metric, sorted by name.
func (m *MemoryMetrics) Report(w io.Writer) error {
	counters := map[string]*summary{}
	samples := map[string]*summary{}

	for _, intv := range m.sink.Data() {
		intv.RLock()
		for name, v := range intv.Counters {
			if counters[name] == nil {
				counters[name] = &summary{}
			}
			counters[name].add(v.AggregateSample)
		}
		for name, v := range intv.Samples {
			if samples[name] == nil {
				samples[name] = &summary{}
			}
			samples[name].add(v.AggregateSample)
		}
		intv.RUnlock()
	}

	for _, name := range sortedKeys(counters) {
		if _, err := fmt.Fprintf(w, "[C] %s: %.0f\n", name, counters[name].sum); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(samples) {
		s := samples[name]
		if _, err := fmt.Fprintf(w, "[S] %s: count=%d mean=%.6f min=%.6f max=%.6f\n", name, s.count, s.sum/float64(s.count), s.min, s.max); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]*summary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewMemoryMetrics returns a new memory metrics collector.
func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{sink: hmetrics.NewInmemSink(AggregationInterval, RetentionPeriod)}
}
