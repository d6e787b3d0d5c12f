// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package evict implements the recency ordering used by the cache tiers.
//
// The ordering runs from the most protected position (the head) to the next entry to evict (the
// tail). New entries are not placed at the head: they enter at a configurable fraction of the list
// so that one-time scan traffic must pass through the tail part of the list, and be hit again,
// before it can displace entries that have proved reuse.
package evict

import (
	"container/list"
	"fmt"
	"math"
)

// Entry is a node of a List.
type Entry[T any] struct {
	Value T
	Size  int64

	elem *list.Element
	head bool
}

// List orders entries by recency with an adjustable insertion point.
//
// Internally the list is split in two: the head part holds the first floor(point*n) entries and
// the tail part holds the rest. Inserting at the front of the tail part is then the same as
// inserting at index floor(point*n) of the whole ordering. List is not safe for concurrent use.
type List[T any] struct {
	point float64
	head  *list.List
	tail  *list.List
	size  int64
}

// New creates a list whose entries are inserted at the given fraction of the ordering.
// 0 inserts at the head (plain LRU), 0.5 in the middle and 1 at the tail.
func New[T any](point float64) (*List[T], error) {
	if math.IsNaN(point) || point < 0 || point > 1 {
		return nil, fmt.Errorf("insertion point must be within [0, 1], got %v", point)
	}
	return &List[T]{point: point, head: list.New(), tail: list.New()}, nil
}

// Len returns the number of entries.
func (l *List[T]) Len() int {
	return l.head.Len() + l.tail.Len()
}

// Size returns the sum of entry sizes.
func (l *List[T]) Size() int64 {
	return l.size
}

// Insert adds a new entry at the insertion point.
func (l *List[T]) Insert(v T, size int64) *Entry[T] {
	e := &Entry[T]{Value: v, Size: size}
	e.elem = l.tail.PushFront(e)
	l.size += size
	l.rebalance()
	return e
}

// Touch records a hit: the entry moves to the head of the ordering.
func (l *List[T]) Touch(e *Entry[T]) {
	if e.head {
		l.head.MoveToFront(e.elem)
		return
	}
	l.tail.Remove(e.elem)
	e.elem = l.head.PushFront(e)
	e.head = true
	l.rebalance()
}

// Clear unlinks every entry.
func (l *List[T]) Clear() {
	for _, part := range []*list.List{l.head, l.tail} {
		for el := part.Front(); el != nil; el = el.Next() {
			el.Value.(*Entry[T]).elem = nil
		}
		part.Init()
	}
	l.size = 0
}

// Remove deletes the entry from the list.
func (l *List[T]) Remove(e *Entry[T]) {
	if e.elem == nil {
		return
	}
	if e.head {
		l.head.Remove(e.elem)
	} else {
		l.tail.Remove(e.elem)
	}
	e.elem = nil
	l.size -= e.Size
	l.rebalance()
}

// Back returns the entry that should be evicted next, or nil if the list is empty.
func (l *List[T]) Back() *Entry[T] {
	if el := l.tail.Back(); el != nil {
		return el.Value.(*Entry[T])
	}
	if el := l.head.Back(); el != nil {
		return el.Value.(*Entry[T])
	}
	return nil
}

// Each calls fn for every entry from head to tail until fn returns false. fn must not modify the list.
func (l *List[T]) Each(fn func(e *Entry[T]) bool) {
	for _, part := range []*list.List{l.head, l.tail} {
		for el := part.Front(); el != nil; {
			next := el.Next()
			if !fn(el.Value.(*Entry[T])) {
				return
			}
			el = next
		}
	}
}

// Linked reports whether the entry is still part of a list.
func (e *Entry[T]) Linked() bool {
	return e.elem != nil
}

// rebalance moves entries across the split so that the head part keeps floor(point*n) entries.
// Entries only cross at the boundary, which keeps the overall order intact.
func (l *List[T]) rebalance() {
	target := int(l.point * float64(l.Len()))
	for l.head.Len() > target {
		el := l.head.Back()
		e := el.Value.(*Entry[T])
		l.head.Remove(el)
		e.elem = l.tail.PushFront(e)
		e.head = false
	}
	for l.head.Len() < target && l.tail.Len() > 0 {
		el := l.tail.Front()
		e := el.Value.(*Entry[T])
		l.tail.Remove(el)
		e.elem = l.head.PushBack(e)
		e.head = true
	}
}
