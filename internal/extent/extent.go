// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package extent tracks how far each identifier has ever been written.
package extent

import (
	"sync"
)

const defaultEvictionPercentage int = 5 // The default eviction percentage used when the map reaches its capacity at insertion

// Map is a bounded map from identifier to the end of the furthest range ever written for it.
// It only answers "definitely never written there"; a missing identifier means unknown.
type Map struct {
	ends               map[string]span
	lock               sync.RWMutex
	capacity           int
	evictionPercentage int
	forgot             bool
}

// span is the known extent of an identifier. An identifier first recorded after the map has forgotten
// anything may have been forgotten with a larger extent, so it is not trusted to bound what was written.
type span struct {
	end     int64
	trusted bool
}

// Get returns the known extent of the identifier.
func (m *Map) Get(id string) (end int64, ok bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	sp, ok := m.ends[id]
	return sp.end, ok
}

// Beyond reports whether offset is known to lie at or past everything ever written for id.
func (m *Map) Beyond(id string, offset int64) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	sp, ok := m.ends[id]
	return ok && sp.trusted && offset >= sp.end
}

// Record extends the extent of id to end if it is further than the current one.
// If the identifier is new and the map is at capacity, some identifiers are forgotten first.
// Once anything has been forgotten, Beyond never holds for new identifiers.
func (m *Map) Record(id string, end int64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	cur, ok := m.ends[id]
	if !ok {
		cur.trusted = !m.forgot
		if n := len(m.ends); n >= m.capacity { // exceeding capacity, forget evictionPercentage of the entries
			numToEvict := n * m.evictionPercentage / 100
			if numToEvict <= 1 { // We will evict one as the minimum
				numToEvict = 1
			}
			numEvicted := 0
			m.forgot = true
			for k := range m.ends { // Go map iteration order is random
				delete(m.ends, k)
				numEvicted++
				if numEvicted >= numToEvict {
					break
				}
			}
		}
	}

	if !ok || end > cur.end {
		cur.end = end
		m.ends[id] = cur
	}
}

// Delete forgets the identifier.
func (m *Map) Delete(id string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.ends, id)
}

// Len returns the number of identifiers tracked.
func (m *Map) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.ends)
}

// NewMap creates a new Map with the specified maximum number of identifiers.
// If the maximum number of identifiers is less than or equal to 0, it will be set to 1.
func NewMap(maxEntries int) *Map {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Map{
		ends:               map[string]span{},
		capacity:           maxEntries,
		evictionPercentage: defaultEvictionPercentage,
	}
}
