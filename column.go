package loom

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// denseColumn is a simple vector store: a slice of T indexed by raw, paired
// with a presence bitmap. It backs optional simple components
// and every isotope discriminant's column. Presence is a roaring.Bitmap
// rather than a fixed-width mask.Mask256 because the raw-index space grows
// unboundedly with the live entity population (mask.Mask256 is reserved for
// the fixed, small sets the scheduler and isotope-partial accessors use).
type denseColumn[T any] struct {
	values   []T
	presence *roaring.Bitmap
}

func newDenseColumn[T any]() *denseColumn[T] {
	return &denseColumn[T]{presence: roaring.New()}
}

func (c *denseColumn[T]) grow(raw uint32) {
	if int(raw) < len(c.values) {
		return
	}
	next := make([]T, raw+1)
	copy(next, c.values)
	c.values = next
}

// Get returns a pointer to the value at raw and whether it is present.
func (c *denseColumn[T]) Get(raw uint32) (*T, bool) {
	if !c.presence.Contains(raw) {
		return nil, false
	}
	return &c.values[raw], true
}

// Set writes v at raw, growing the backing slice if necessary and marking
// raw present.
func (c *denseColumn[T]) Set(raw uint32, v T) {
	c.grow(raw)
	c.values[raw] = v
	c.presence.Add(raw)
}

// Clear removes the value (if any) at raw, marking it absent.
func (c *denseColumn[T]) Clear(raw uint32) {
	if int(raw) < len(c.values) {
		var zero T
		c.values[raw] = zero
	}
	c.presence.Remove(raw)
}

// IterPresence calls fn for every present raw index in ascending order.
func (c *denseColumn[T]) IterPresence(fn func(raw uint32)) {
	it := c.presence.Iterator()
	for it.HasNext() {
		fn(it.Next())
	}
}

// Chunk is a maximal run of consecutive raw indices that are all present.
type Chunk struct {
	Start, End uint32 // [Start, End)
}

// IterChunks calls fn once per maximal run of consecutive present entries.
func (c *denseColumn[T]) IterChunks(fn func(Chunk)) {
	it := c.presence.Iterator()
	if !it.HasNext() {
		return
	}
	start := it.Next()
	prev := start
	for it.HasNext() {
		next := it.Next()
		if next != prev+1 {
			fn(Chunk{Start: start, End: prev + 1})
			start = next
		}
		prev = next
	}
	fn(Chunk{Start: start, End: prev + 1})
}
