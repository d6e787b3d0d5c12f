// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package math

import "testing"

func TestNewSegments(t *testing.T) {
	if _, err := NewSegments(0, 3, 100, 100); err == nil {
		t.Fatal("expected error for step that is not a power of 2")
	}

	if _, err := NewSegments(-1, 4, 100, 100); err == nil {
		t.Fatal("expected error for negative offset")
	}
}

func TestAlignDown(t *testing.T) {
	for _, testcase := range []struct {
		x        int64
		align    int64
		expected int64
	}{
		{x: 1, align: 2, expected: 0},
		{x: 29, align: 14, expected: 28},
		{x: 0, align: 2, expected: 0},
		{x: 2, align: 2, expected: 2},
		{x: 2147483647, align: 2, expected: 2147483646},
		{x: 2147483647, align: 16, expected: 2147483632},
	} {
		got := AlignDown(testcase.x, testcase.align)
		if got != testcase.expected {
			t.Errorf("expected: %v, got: %v", testcase.expected, got)
		}
	}
}

func TestAlignUp(t *testing.T) {
	for _, testcase := range []struct {
		x        int64
		align    int64
		expected int64
	}{
		{x: 1, align: 2, expected: 2},
		{x: 28, align: 14, expected: 28},
		{x: 0, align: 4, expected: 0},
		{x: 1025, align: 1024, expected: 2048},
	} {
		got := AlignUp(testcase.x, testcase.align)
		if got != testcase.expected {
			t.Errorf("expected: %v, got: %v", testcase.expected, got)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for x, want := range map[int64]bool{0: false, 1: true, 2: true, 3: false, 1024: true, 1 << 20: true, -4: false, 1000: false} {
		if got := IsPowerOfTwo(x); got != want {
			t.Errorf("IsPowerOfTwo(%d): expected: %v, got: %v", x, want, got)
		}
	}
}

func TestMinMax(t *testing.T) {
	if got := Max64(-1, 1); got != 1 {
		t.Errorf("expected: %v, got: %v", 1, got)
	}
	if got := Min64(1000, 0); got != 0 {
		t.Errorf("expected: %v, got: %v", 0, got)
	}
	if got := Min(2, 1); got != 1 {
		t.Errorf("expected: %v, got: %v", 1, got)
	}
}

func TestAll(t *testing.T) {
	for _, testcase := range []struct {
		name     string
		offset   int64
		step     int
		count    int64
		size     int64
		expected []Segment
	}{
		{
			name:   "aligned",
			offset: 0,
			step:   4,
			count:  10,
			size:   10,
			expected: []Segment{
				{Index: 0, Offset: 0, Count: 4, Pos: 0},
				{Index: 4, Offset: 0, Count: 4, Pos: 4},
				{Index: 8, Offset: 0, Count: 2, Pos: 8},
			},
		},
		{
			name:   "unaligned start",
			offset: 3,
			step:   2,
			count:  9,
			size:   15,
			expected: []Segment{
				{Index: 2, Offset: 1, Count: 1, Pos: 0},
				{Index: 4, Offset: 0, Count: 2, Pos: 1},
				{Index: 6, Offset: 0, Count: 2, Pos: 3},
				{Index: 8, Offset: 0, Count: 2, Pos: 5},
				{Index: 10, Offset: 0, Count: 2, Pos: 7},
			},
		},
		{
			name:   "capped by size",
			offset: 6,
			step:   4,
			count:  100,
			size:   9,
			expected: []Segment{
				{Index: 4, Offset: 2, Count: 2, Pos: 0},
				{Index: 8, Offset: 0, Count: 1, Pos: 2},
			},
		},
		{
			name:     "empty",
			offset:   8,
			step:     4,
			count:    0,
			size:     100,
			expected: []Segment{},
		},
	} {
		t.Run(testcase.name, func(t *testing.T) {
			segs, err := NewSegments(testcase.offset, testcase.step, testcase.count, testcase.size)
			if err != nil {
				t.Fatal(err)
			}

			got := segs.All()
			if len(got) != len(testcase.expected) || segs.Len() != len(testcase.expected) {
				t.Fatalf("expected %d segments, got %d (Len %d)", len(testcase.expected), len(got), segs.Len())
			}
			for i, seg := range got {
				if testcase.expected[i] != seg {
					t.Errorf("expected: %v, got: %v", testcase.expected[i], seg)
				}
			}
		})
	}
}
