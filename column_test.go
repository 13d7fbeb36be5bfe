package loom

import "testing"

func TestDenseColumnSetGetClear(t *testing.T) {
	c := newDenseColumn[int]()
	if _, ok := c.Get(3); ok {
		t.Fatalf("Get on empty column reported present")
	}
	c.Set(3, 42)
	v, ok := c.Get(3)
	if !ok || *v != 42 {
		t.Fatalf("Get(3) = (%v, %v), want (42, true)", v, ok)
	}
	c.Clear(3)
	if _, ok := c.Get(3); ok {
		t.Fatalf("Get(3) after Clear still reports present")
	}
}

func TestDenseColumnGetReturnsMutablePointer(t *testing.T) {
	c := newDenseColumn[int]()
	c.Set(0, 1)
	v, _ := c.Get(0)
	*v = 99
	got, _ := c.Get(0)
	if *got != 99 {
		t.Fatalf("mutation through Get's pointer did not persist, got %d", *got)
	}
}

func TestDenseColumnIterPresenceAscending(t *testing.T) {
	c := newDenseColumn[int]()
	for _, raw := range []uint32{5, 1, 3} {
		c.Set(raw, int(raw))
	}
	var seen []uint32
	c.IterPresence(func(raw uint32) { seen = append(seen, raw) })
	want := []uint32{1, 3, 5}
	if len(seen) != len(want) {
		t.Fatalf("IterPresence visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("IterPresence[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestDenseColumnIterChunks(t *testing.T) {
	c := newDenseColumn[int]()
	for _, raw := range []uint32{0, 1, 2, 5, 6, 9} {
		c.Set(raw, 0)
	}
	var chunks []Chunk
	c.IterChunks(func(ch Chunk) { chunks = append(chunks, ch) })
	want := []Chunk{{Start: 0, End: 3}, {Start: 5, End: 7}, {Start: 9, End: 10}}
	if len(chunks) != len(want) {
		t.Fatalf("IterChunks = %v, want %v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk[%d] = %v, want %v", i, chunks[i], want[i])
		}
	}
}

func TestTreeColumnSetGetClear(t *testing.T) {
	c := newTreeColumn[string]()
	if _, ok := c.Get(1); ok {
		t.Fatalf("Get on empty tree column reported present")
	}
	c.Set(1, "a")
	v, ok := c.Get(1)
	if !ok || *v != "a" {
		t.Fatalf("Get(1) = (%v, %v), want (a, true)", v, ok)
	}
	c.Clear(1)
	if _, ok := c.Get(1); ok {
		t.Fatalf("Get(1) after Clear still present")
	}
}

func TestTreeColumnGetReturnsMutablePointer(t *testing.T) {
	c := newTreeColumn[int]()
	c.Set(2, 10)
	v, _ := c.Get(2)
	*v = 20
	got, _ := c.Get(2)
	if *got != 20 {
		t.Fatalf("mutation through Get's pointer did not persist, got %d", *got)
	}
}
