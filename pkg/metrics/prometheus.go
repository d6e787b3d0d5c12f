// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package metrics provides collectors for block cache metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type ctxKey struct{}

// promMetrics is a metrics collector that stores metrics in Prometheus.
type promMetrics struct {
	name              string
	hits              *prometheus.CounterVec
	hitBytes          *prometheus.CounterVec
	misses            *prometheus.CounterVec
	writeBytes        *prometheus.CounterVec
	evictions         *prometheus.CounterVec
	rejects           *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

var _ Metrics = &promMetrics{}

// RecordHit counts a hit and the bytes it served.
func (m *promMetrics) RecordHit(tier string, bytes int) {
	m.hits.WithLabelValues(m.name, tier).Inc()
	m.hitBytes.WithLabelValues(m.name, tier).Add(float64(bytes))
}

// RecordMiss counts a miss.
func (m *promMetrics) RecordMiss() {
	m.misses.WithLabelValues(m.name).Inc()
}

// RecordWrite counts the bytes stored in a tier.
func (m *promMetrics) RecordWrite(tier string, bytes int) {
	m.writeBytes.WithLabelValues(m.name, tier).Add(float64(bytes))
}

// RecordEviction counts a block evicted from a tier.
func (m *promMetrics) RecordEviction(tier string, bytes int64) {
	m.evictions.WithLabelValues(m.name, tier).Inc()
}

// RecordReject counts a refused write.
func (m *promMetrics) RecordReject(reason string) {
	m.rejects.WithLabelValues(m.name, reason).Inc()
}

// RecordOperation observes the duration of an operation.
func (m *promMetrics) RecordOperation(op string, duration float64) {
	m.operationDuration.WithLabelValues(m.name, op).Observe(duration)
}

// NewPromMetrics creates a new instance of promMetrics.
func NewPromMetrics(reg prometheus.Registerer, name, prefix string) *promMetrics {

	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_hits_total",
		Help: "Number of reads served by a tier.",
	}, []string{"self", "tier"})
	reg.MustRegister(hits)

	hitBytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_hit_bytes_total",
		Help: "Bytes served by a tier.",
	}, []string{"self", "tier"})
	reg.MustRegister(hitBytes)

	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_misses_total",
		Help: "Number of reads not served by any tier.",
	}, []string{"self"})
	reg.MustRegister(misses)

	writeBytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_write_bytes_total",
		Help: "Bytes stored in a tier.",
	}, []string{"self", "tier"})
	reg.MustRegister(writeBytes)

	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_evictions_total",
		Help: "Number of blocks evicted from a tier.",
	}, []string{"self", "tier"})
	reg.MustRegister(evictions)

	rejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_rejects_total",
		Help: "Number of refused writes.",
	}, []string{"self", "reason"})
	reg.MustRegister(rejects)

	operationDurationHist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prefix + "_operation_duration_seconds",
		Help:    "Duration of cache operations in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 20),
	}, []string{"self", "op"})
	reg.MustRegister(operationDurationHist)

	return &promMetrics{
		name:              name,
		hits:              hits,
		hitBytes:          hitBytes,
		misses:            misses,
		writeBytes:        writeBytes,
		evictions:         evictions,
		rejects:           rejects,
		operationDuration: operationDurationHist,
	}
}
