package loom

// EntityCursor is satisfied by any entity-traversal cursor that has
// advanced to a valid position: the whole-archetype EntityIterator and its
// per-chunk counterpart used by parallel traversal.
type EntityCursor[A any] interface {
	Entity() EntityID[A]
}

// EntityIterator walks one archetype's live snapshot for the duration of a
// single system invocation. The snapshot is taken once, at construction, so
// it stays stable even though the invoking system may spawn entities that
// land in the archetype's pending set mid-tick.
type EntityIterator[A any] struct {
	archetype *TypedStore[A]
	snapshot  Snapshot
	pos       int
	cur       EntityID[A]
}

func newEntityIterator[A any](ts *TypedStore[A]) *EntityIterator[A] {
	return &EntityIterator[A]{archetype: ts, snapshot: ts.Snapshot(), pos: -1}
}

// Next advances the cursor, returning false once the snapshot is exhausted.
func (it *EntityIterator[A]) Next() bool {
	it.pos++
	if it.pos >= it.snapshot.Len() {
		return false
	}
	raw := it.snapshot.At(it.pos)
	it.cur = EntityID[A]{raw: raw, generation: it.archetype.alloc.generation(raw)}
	return true
}

// Entity returns the entity at the cursor's current position.
func (it *EntityIterator[A]) Entity() EntityID[A] { return it.cur }

// Len returns the snapshot's entity count.
func (it *EntityIterator[A]) Len() int { return it.snapshot.Len() }

// Chunks splits the snapshot into up to n contiguous, independently
// cursorable slices for parallel traversal across n workers: each raw is
// visited by exactly one chunk.
func (it *EntityIterator[A]) Chunks(n int) []*EntityChunkIterator[A] {
	total := it.snapshot.Len()
	if n < 1 {
		n = 1
	}
	base := total / n
	rem := total % n
	chunks := make([]*EntityChunkIterator[A], 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		chunks = append(chunks, &EntityChunkIterator[A]{
			archetype: it.archetype,
			snapshot:  it.snapshot,
			start:     start,
			end:       start + size,
			pos:       start - 1,
		})
		start += size
	}
	return chunks
}

// EntityChunkIterator is one contiguous slice of an EntityIterator's
// snapshot, independently cursorable so N workers can each drain a disjoint
// chunk concurrently.
type EntityChunkIterator[A any] struct {
	archetype  *TypedStore[A]
	snapshot   Snapshot
	start, end int
	pos        int
	cur        EntityID[A]
}

func (it *EntityChunkIterator[A]) Next() bool {
	it.pos++
	if it.pos >= it.end {
		return false
	}
	raw := it.snapshot.At(it.pos)
	it.cur = EntityID[A]{raw: raw, generation: it.archetype.alloc.generation(raw)}
	return true
}

func (it *EntityChunkIterator[A]) Entity() EntityID[A] { return it.cur }

func (it *EntityChunkIterator[A]) Len() int { return it.end - it.start }

// Iterate opens an EntityIterator over ts's current live snapshot.
func (ts *TypedStore[A]) Iterate(ctx *Context) *EntityIterator[A] {
	return newEntityIterator(ts)
}
