// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package math

import "fmt"

// Segments splits the byte range [offset, min(offset+count, size)) into block aligned pieces.
type Segments struct {
	offset int64
	step   int64
	end    int64
}

// Segment represents a single piece of a range that falls inside one block.
type Segment struct {
	// Index is the block aligned offset of the block holding this piece.
	Index int64
	// Offset is the offset of the piece inside the block.
	Offset int64
	// Count is the length of the piece.
	Count int
	// Pos is the position of the piece relative to the start of the whole range.
	Pos int64
}

// Start is the absolute offset of the first byte of the segment.
func (s Segment) Start() int64 {
	return s.Index + s.Offset
}

// NewSegments creates a new Segments object. The step must be a power of 2.
func NewSegments(offset int64, step int, count int64, size int64) (Segments, error) {
	if !IsPowerOfTwo(int64(step)) {
		return Segments{}, fmt.Errorf("step must be power of 2, got %d", step)
	}
	if offset < 0 || count < 0 {
		return Segments{}, fmt.Errorf("invalid range, offset: %d, count: %d", offset, count)
	}
	return Segments{offset: offset, step: int64(step), end: Min64(offset+count, size)}, nil
}

// Len returns the number of segments.
func (r Segments) Len() int {
	if r.end <= r.offset {
		return 0
	}
	return int((AlignUp(r.end, r.step) - AlignDown(r.offset, r.step)) / r.step)
}

// All returns all segments in ascending order.
func (r Segments) All() []Segment {
	segs := make([]Segment, 0, r.Len())
	for i := AlignDown(r.offset, r.step); i < r.end; i += r.step {
		absOffset := Max64(i, r.offset)
		seg := Segment{Index: i, Offset: absOffset - i, Pos: absOffset - r.offset}
		seg.Count = int(Min64(i+r.step, r.end) - absOffset)
		if seg.Count > 0 {
			segs = append(segs, seg)
		}
	}
	return segs
}
