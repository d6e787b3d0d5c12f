// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package metrics

// multi fans out every event to a list of collectors.
type multi []Metrics

// Multi returns a Metrics that records to all of ms.
func Multi(ms ...Metrics) Metrics {
	return multi(ms)
}

func (m multi) RecordHit(tier string, bytes int) {
	for _, c := range m {
		c.RecordHit(tier, bytes)
	}
}

func (m multi) RecordMiss() {
	for _, c := range m {
		c.RecordMiss()
	}
}

func (m multi) RecordWrite(tier string, bytes int) {
	for _, c := range m {
		c.RecordWrite(tier, bytes)
	}
}

func (m multi) RecordEviction(tier string, bytes int64) {
	for _, c := range m {
		c.RecordEviction(tier, bytes)
	}
}

func (m multi) RecordReject(reason string) {
	for _, c := range m {
		c.RecordReject(reason)
	}
}

func (m multi) RecordOperation(op string, duration float64) {
	for _, c := range m {
		c.RecordOperation(op, duration)
	}
}
