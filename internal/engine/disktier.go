// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"fmt"
	"path/filepath"

	"github.com/azure/blockcache/internal/evict"
)

// diskBlock is a block resident in a disk tier.
type diskBlock struct {
	key   blockKey
	start int64
	size  int64
	file  string

	// pending holds the block content while its file is being written. Reads are served from it.
	pending []byte
}

func (b *diskBlock) covers(off int64, n int) bool {
	return off >= b.start && off+int64(n) <= b.start+b.size
}

// diskTier is one disk path. Callers must hold the engine lock.
type diskTier struct {
	root  string
	dir   string
	quota int64
	index map[blockKey]*evict.Entry[*diskBlock]
	lru   *evict.List[*diskBlock]
}

func newDiskTier(root, dir string, quota int64, point float64) (*diskTier, error) {
	lru, err := evict.New[*diskBlock](point)
	if err != nil {
		return nil, err
	}
	return &diskTier{root: root, dir: dir, quota: quota, index: map[blockKey]*evict.Entry[*diskBlock]{}, lru: lru}, nil
}

func (t *diskTier) fits(size int64) bool {
	return size <= t.quota
}

func (t *diskTier) get(k blockKey) (*evict.Entry[*diskBlock], bool) {
	e, ok := t.index[k]
	return e, ok
}

func (t *diskTier) insert(b *diskBlock) *evict.Entry[*diskBlock] {
	e := t.lru.Insert(b, b.size)
	t.index[b.key] = e
	return e
}

func (t *diskTier) remove(e *evict.Entry[*diskBlock]) {
	delete(t.index, e.Value.key)
	t.lru.Remove(e)
}

// evictFor removes blocks from the tail until size more bytes fit within the quota.
func (t *diskTier) evictFor(size int64) []*diskBlock {
	var victims []*diskBlock
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

// fileFor names the file of a block. Files are spread over 256 sub directories and carry a sequence
// number so that a replaced block never shares a file with its successor.
func (t *diskTier) fileFor(k blockKey, seq uint64) string {
	h := k.hash()
	return filepath.Join(t.dir, fmt.Sprintf("%02x", h&0xff), fmt.Sprintf("%016x-%d-%d.blk", h, k.offset, seq))
}
