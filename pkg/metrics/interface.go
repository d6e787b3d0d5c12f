// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Tier names used as metric labels.
const (
	TierMemory = "memory"
	TierDisk   = "disk"
)

// Metrics defines an interface to collect block cache metrics.
type Metrics interface {
	// RecordHit records a read served by a tier.
	RecordHit(tier string, bytes int)

	// RecordMiss records a read that no tier could serve.
	RecordMiss()

	// RecordWrite records a block stored in a tier.
	RecordWrite(tier string, bytes int)

	// RecordEviction records a block leaving a tier because the tier is full.
	RecordEviction(tier string, bytes int64)

	// RecordReject records a write that was refused, by reason.
	RecordReject(reason string)

	// RecordOperation records the time in seconds it takes to complete a cache operation.
	RecordOperation(op string, duration float64)
}

// Discard is a Metrics that drops everything.
var Discard Metrics = discard{}

type discard struct{}

func (discard) RecordHit(string, int)           {}
func (discard) RecordMiss()                     {}
func (discard) RecordWrite(string, int)         {}
func (discard) RecordEviction(string, int64)    {}
func (discard) RecordReject(string)             {}
func (discard) RecordOperation(string, float64) {}

// WithContext returns a new context with a metrics recorder.
func WithContext(ctx context.Context, name, prefix string) (context.Context, error) {
	pm := NewPromMetrics(prometheus.DefaultRegisterer, name, prefix)
	if pm == nil {
		return nil, errors.New("failed to create prometheus metrics")
	}

	return context.WithValue(ctx, ctxKey{}, Metrics(pm)), nil
}

// WithMetrics returns a new context carrying m.
func WithMetrics(ctx context.Context, m Metrics) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// FromContext returns the metrics recorder from the context, or Discard.
func FromContext(ctx context.Context) Metrics {
	if m, ok := ctx.Value(ctxKey{}).(Metrics); ok && m != nil {
		return m
	}
	return Discard
}
