// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// blockKey addresses a block: an identifier and a block aligned offset.
type blockKey struct {
	id     string
	offset int64
}

func (k blockKey) String() string {
	return k.id + "@" + strconv.FormatInt(k.offset, 10)
}

// flat encodes the key for engines that need a flat key space.
func (k blockKey) flat() string {
	return k.id + "\x00" + strconv.FormatInt(k.offset, 10)
}

// hash returns a stable hash of the key.
func (k blockKey) hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(k.id)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(strconv.FormatInt(k.offset, 10))
	return d.Sum64()
}

// block is the content of one block. Only the range [start, start+len(data)) relative to the
// block offset is valid; bytes outside it were never written.
type block struct {
	start int64
	data  []byte
}

func (b block) end() int64 {
	return b.start + int64(len(b.data))
}

// covers reports whether [off, off+n) lies within the valid range.
func (b block) covers(off int64, n int) bool {
	return off >= b.start && off+int64(n) <= b.end()
}

// read copies [off, off+len(dst)) into dst. The caller must have checked covers.
func (b block) read(dst []byte, off int64) int {
	return copy(dst, b.data[off-b.start:])
}

// merge returns the block that results from writing data at off over old.
//
// A write that overlaps or touches the old valid range is merged with it into one contiguous range.
// A disjoint write replaces the block, since there is nothing to fill the gap with. The result never
// aliases old.data.
func merge(old *block, off int64, data []byte) block {
	end := off + int64(len(data))
	if old == nil || !mergesWith(old.start, old.end(), off, end) {
		return block{start: off, data: data}
	}

	start := min(off, old.start)
	merged := make([]byte, max(end, old.end())-start)
	copy(merged[old.start-start:], old.data)
	copy(merged[off-start:], data)
	return block{start: start, data: merged}
}

// mergesWith reports whether a write of [off, end) keeps any byte of the valid range [start, stop).
func mergesWith(start, stop, off, end int64) bool {
	if off > stop || end < start {
		return false
	}
	return off > start || end < stop
}
