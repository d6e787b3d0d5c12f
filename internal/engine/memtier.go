// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"github.com/azure/blockcache/internal/evict"
)

// memBlock is a block resident in memory.
type memBlock struct {
	key blockKey
	blk block
}

// memTier is the memory tier. Callers must hold the engine lock.
type memTier struct {
	quota int64
	index map[blockKey]*evict.Entry[*memBlock]
	lru   *evict.List[*memBlock]
}

func newMemTier(quota int64, point float64) (*memTier, error) {
	lru, err := evict.New[*memBlock](point)
	if err != nil {
		return nil, err
	}
	return &memTier{quota: quota, index: map[blockKey]*evict.Entry[*memBlock]{}, lru: lru}, nil
}

// fits reports whether a block of size bytes can ever be held by this tier.
func (t *memTier) fits(size int64) bool {
	return size <= t.quota
}

func (t *memTier) get(k blockKey) (*evict.Entry[*memBlock], bool) {
	e, ok := t.index[k]
	return e, ok
}

func (t *memTier) insert(k blockKey, b block) *evict.Entry[*memBlock] {
	e := t.lru.Insert(&memBlock{key: k, blk: b}, int64(len(b.data)))
	t.index[k] = e
	return e
}

func (t *memTier) remove(e *evict.Entry[*memBlock]) {
	delete(t.index, e.Value.key)
	t.lru.Remove(e)
}

// evictFor removes blocks from the tail until size more bytes fit within the quota.
func (t *memTier) evictFor(size int64) []*memBlock {
	var victims []*memBlock
	for t.lru.Size()+size > t.quota {
		e := t.lru.Back()
		if e == nil {
			break
		}
		t.remove(e)
		victims = append(victims, e.Value)
	}
	return victims
}

func (t *memTier) clear() {
	t.index = map[blockKey]*evict.Entry[*memBlock]{}
	t.lru.Clear()
}
