// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package extent

import (
	"fmt"
	"sync"
	"testing"
)

func TestRecordEvict(t *testing.T) {
	m := NewMap(100)
	m.evictionPercentage = 10
	var wg sync.WaitGroup

	wg.Add(100)
	for i := 0; i < 100; i++ {
		go func(i int) {
			defer wg.Done()
			m.Record(fmt.Sprintf("%d", i), int64(i))
		}(i)
	}
	wg.Wait()

	if n := m.Len(); n != 100 {
		t.Fatalf("unexpected length of map after adding to capacity: %d", n)
	}

	m.Record("200", 200) // Now it's beyond the map capacity. 10% of entries will be forgotten.
	if n := m.Len(); n != 91 {
		t.Fatalf("unexpected length of map after adding beyond capacity: %d", n)
	}
}

func TestRecordKeepsMax(t *testing.T) {
	m := NewMap(10)

	m.Record("f", 100)
	m.Record("f", 50)
	if end, ok := m.Get("f"); !ok || end != 100 {
		t.Fatalf("expected extent 100, got %d (%v)", end, ok)
	}

	m.Record("f", 300)
	if end, _ := m.Get("f"); end != 300 {
		t.Fatalf("expected extent 300, got %d", end)
	}
}

func TestBeyond(t *testing.T) {
	m := NewMap(10)
	m.Record("f", 1024)

	for _, tc := range []struct {
		id     string
		offset int64
		want   bool
	}{
		{"f", 0, false},
		{"f", 1023, false},
		{"f", 1024, true},
		{"f", 1 << 30, true},
		{"unknown", 1 << 30, false},
	} {
		if got := m.Beyond(tc.id, tc.offset); got != tc.want {
			t.Errorf("Beyond(%q, %d): expected %v, got %v", tc.id, tc.offset, tc.want, got)
		}
	}

	m.Delete("f")
	if m.Beyond("f", 1<<30) {
		t.Error("expected deleted identifier to be unknown")
	}
}

func TestNewMapMinimumCapacity(t *testing.T) {
	m := NewMap(0)
	m.Record("a", 1)
	m.Record("b", 2)
	if n := m.Len(); n != 1 {
		t.Fatalf("expected a single entry, got %d", n)
	}
}

func TestRecordAfterForgetting(t *testing.T) {
	m := NewMap(1)
	m.Record("a", 4096)
	m.Record("b", 10) // forgets a
	if _, ok := m.Get("a"); ok {
		t.Fatal("expected a to be forgotten")
	}

	// a may still own data up to 4096, so a smaller record must not bound it.
	m.Record("a", 1)
	if end, ok := m.Get("a"); !ok || end != 1 {
		t.Fatalf("expected extent 1, got %d (%v)", end, ok)
	}
	if m.Beyond("a", 2048) {
		t.Fatal("expected nothing to lie beyond an identifier recorded after forgetting")
	}

	m.Delete("a")
	m.Record("a", 1)
	if m.Beyond("a", 2048) {
		t.Fatal("expected the identifier to stay untrusted after it is deleted")
	}
}
