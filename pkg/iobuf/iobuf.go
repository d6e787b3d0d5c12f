// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package iobuf provides a scatter-gather buffer over externally owned memory.
//
// Appending never copies: a Buffer only records references to the caller's slices. Data is copied
// once, when a contiguous range is extracted with CopyTo or ReadAt.
package iobuf

import (
	"errors"
	"fmt"
	"io"
)

// ErrOutOfRange is returned when a requested range extends past the end of the buffer.
var ErrOutOfRange = errors.New("iobuf: range out of bounds")

// segment is a reference to externally owned memory.
type segment struct {
	data    []byte
	release func()
}

// Buffer is an ordered sequence of segments. The zero value is an empty buffer ready to use.
// A Buffer is not safe for concurrent mutation; concurrent reads are safe.
type Buffer struct {
	segs []segment
	size int64

	// releases of empty segments, which hold no data but still run on Release.
	empties []func()
}

// New creates a buffer from the given slices without copying them.
func New(data ...[]byte) *Buffer {
	b := &Buffer{}
	for _, d := range data {
		b.AppendSegment(d, nil)
	}
	return b
}

// AppendSegment appends a reference to data. If release is not nil the buffer becomes the owner of
// data and calls release exactly once, when Release is called. This holds for empty data, which adds
// no segment, and for views created by Slice.
func (b *Buffer) AppendSegment(data []byte, release func()) {
	if len(data) == 0 {
		if release != nil {
			b.empties = append(b.empties, release)
		}
		return
	}
	b.segs = append(b.segs, segment{data: data, release: release})
	b.size += int64(len(data))
}

// Size returns the total number of bytes in the buffer.
func (b *Buffer) Size() int64 {
	return b.size
}

// Segments returns the number of segments.
func (b *Buffer) Segments() int {
	return len(b.segs)
}

// CopyTo copies len(dst) bytes starting at the logical offset into dst.
// The range [offset, offset+len(dst)) must lie within the buffer; copying up to the exact end is allowed.
func (b *Buffer) CopyTo(dst []byte, offset int64) (int, error) {
	if offset < 0 || offset+int64(len(dst)) > b.size {
		return 0, fmt.Errorf("%w: offset %d, length %d, size %d", ErrOutOfRange, offset, len(dst), b.size)
	}

	copied := 0
	pos := int64(0)
	for _, s := range b.segs {
		if copied == len(dst) {
			break
		}

		segLen := int64(len(s.data))
		if pos+segLen <= offset {
			pos += segLen
			continue
		}

		start := int64(0)
		if offset > pos {
			start = offset - pos
		}
		copied += copy(dst[copied:], s.data[start:])
		pos += segLen
	}

	return copied, nil
}

// ReadAt implements io.ReaderAt. Unlike CopyTo, it returns a short read with io.EOF at the end of the buffer.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrOutOfRange, off)
	}
	if off >= b.size {
		return 0, io.EOF
	}

	n := int64(len(p))
	var err error
	if off+n > b.size {
		n = b.size - off
		err = io.EOF
	}

	copied, cerr := b.CopyTo(p[:n], off)
	if cerr != nil {
		return copied, cerr
	}
	return copied, err
}

// Slice returns a view of [offset, offset+length) that shares memory with b. Releasing the view
// never releases memory of b; its lifetime is bounded by b.
func (b *Buffer) Slice(offset, length int64) (*Buffer, error) {
	if offset < 0 || length < 0 || offset+length > b.size {
		return nil, fmt.Errorf("%w: offset %d, length %d, size %d", ErrOutOfRange, offset, length, b.size)
	}

	v := &Buffer{}
	pos := int64(0)
	end := offset + length
	for _, s := range b.segs {
		segLen := int64(len(s.data))
		segStart, segEnd := pos, pos+segLen
		pos = segEnd
		if segEnd <= offset {
			continue
		}
		if segStart >= end {
			break
		}

		from := int64(0)
		if offset > segStart {
			from = offset - segStart
		}
		to := segLen
		if end < segEnd {
			to = end - segStart
		}
		v.AppendSegment(s.data[from:to], nil)
	}

	return v, nil
}

// Bytes returns a contiguous copy of the whole buffer.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, b.size)
	_, _ = b.CopyTo(out, 0)
	return out
}

// Release invokes every release callback once and empties the buffer.
func (b *Buffer) Release() {
	for i := range b.segs {
		if r := b.segs[i].release; r != nil {
			b.segs[i].release = nil
			r()
		}
	}
	for _, r := range b.empties {
		r()
	}
	b.empties = nil
	b.segs = nil
	b.size = 0
}
