// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"golang.org/x/sync/semaphore"
)

// admission bounds the number of concurrent inserts. Inserts beyond the bound fail fast.
type admission struct {
	sem *semaphore.Weighted // nil if unlimited
}

// newAdmission creates an admission controller. A limit <= 0 admits everything.
func newAdmission(limit int64) *admission {
	a := &admission{}
	if limit > 0 {
		a.sem = semaphore.NewWeighted(limit)
	}
	return a
}

// tryAcquire reserves an insert slot without blocking.
func (a *admission) tryAcquire() bool {
	if a.sem == nil {
		return true
	}
	return a.sem.TryAcquire(1)
}

// release returns an insert slot.
func (a *admission) release() {
	if a.sem != nil {
		a.sem.Release(1)
	}
}
