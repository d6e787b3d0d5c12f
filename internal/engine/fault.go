// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"fmt"
	"sync"
)

// fault holds the first fatal error observed by an engine. Later faults are dropped.
type fault struct {
	lock sync.RWMutex
	err  error
}

// Err returns the latched fault, wrapped in ErrInternal, or nil.
func (f *fault) Err() error {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.err
}

// Set latches err if no fault has been recorded yet. It reports whether err was retained.
func (f *fault) Set(err error) bool {
	if err == nil {
		return false
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return false
	}
	f.err = fmt.Errorf("%w: %w", ErrInternal, err)
	return true
}
