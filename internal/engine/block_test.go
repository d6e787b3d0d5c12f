// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"testing"
)

func TestMerge(t *testing.T) {
	old := &block{start: 10, data: []byte("abcde")}

	tests := []struct {
		name      string
		off       int64
		data      string
		wantStart int64
		want      string
	}{
		{"disjoint after", 20, "xy", 20, "xy"},
		{"disjoint before", 0, "xy", 0, "xy"},
		{"touch after", 15, "xy", 10, "abcdexy"},
		{"touch before", 8, "xy", 8, "xyabcde"},
		{"overlap inside", 11, "xy", 10, "axyde"},
		{"overlap end", 13, "xyz", 10, "abcxyz"},
		{"covers", 9, "1234567", 9, "1234567"},
		{"exact", 10, "12345", 10, "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := merge(old, tt.off, []byte(tt.data))
			if got.start != tt.wantStart || string(got.data) != tt.want {
				t.Errorf("got %d %q, expected %d %q", got.start, got.data, tt.wantStart, tt.want)
			}
		})
	}

	if string(old.data) != "abcde" {
		t.Fatalf("merge modified the old block: %q", old.data)
	}

	got := merge(nil, 5, []byte("new"))
	if got.start != 5 || string(got.data) != "new" {
		t.Fatalf("got %d %q", got.start, got.data)
	}
}

func TestBlockCovers(t *testing.T) {
	b := block{start: 10, data: make([]byte, 10)}
	if !b.covers(10, 10) || !b.covers(15, 5) {
		t.Error("expected range to be covered")
	}
	if b.covers(9, 2) || b.covers(15, 6) {
		t.Error("expected range not to be covered")
	}
}

func TestValidateKey(t *testing.T) {
	k, off, err := validateKey(CacheKey{ID: "a", Offset: 4100, Length: 10}, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if k.offset != 4096 || off != 4 {
		t.Fatalf("got block %d in block offset %d", k.offset, off)
	}

	if _, _, err := validateKey(CacheKey{ID: "a", Offset: 4090, Length: 10}, 4096); err == nil {
		t.Fatal("expected error for a range crossing a block boundary")
	}
}

func TestBlockKeyHashIsStable(t *testing.T) {
	a := blockKey{id: "file", offset: 4096}
	b := blockKey{id: "file", offset: 4096}
	c := blockKey{id: "file", offset: 8192}

	if a.hash() != b.hash() {
		t.Error("expected equal keys to hash equally")
	}
	if a.hash() == c.hash() {
		t.Error("expected different keys to hash differently")
	}
	if a.String() != "file@4096" {
		t.Errorf("unexpected key string %q", a.String())
	}
}
