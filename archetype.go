package loom

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/TheBitDrifter/table"
)

type archetypeID uint32

// entryIndex is shared by every archetype's table: table.Table uses it to
// map an entity's identity to its row, and a single index serves every
// table the same way a single address space serves every allocator shard.
var entryIndex = table.Factory.NewEntryIndex()

// TypedStore is the World's per-archetype storage: the dense table.Table
// holding every required simple component, plus whatever optional, tree and
// isotope stores were registered for A. An entity's archetype and component
// set never change after RegisterArchetype, so TypedStore never computes a
// mask to find or create a matching archetype at entity-creation time:
// there is exactly one TypedStore per A, built once at Finalize.
type TypedStore[A any] struct {
	id   archetypeID
	name string

	schema    table.Schema
	tbl       table.Table
	tableRows uint32
	tableMu   sync.Mutex
	elemTypes []table.ElementType

	alloc *Allocator

	live    *roaring.Bitmap // fully-live raws, initialized by a completed reconcile
	pending *roaring.Bitmap // minted this tick, not yet reconciled

	finalizers []finalizerCheck

	tracker refTracker

	built bool
}

type finalizerCheck struct {
	name    string
	present func(raw uint32) bool
}

func newTypedStore[A any](id archetypeID, name string) *TypedStore[A] {
	registerArchetypeName(id, name)
	return &TypedStore[A]{
		id:      id,
		name:    name,
		schema:  table.Factory.NewSchema(),
		live:    roaring.New(),
		pending: roaring.New(),
	}
}

// ensureCapacity grows the archetype's dense table so every raw up to n-1 is
// a valid row index. Called whenever the allocator mints raws beyond the
// table's current row count, keeping the table's row count and the
// allocator's raw space in lockstep without ever invoking table's own
// entry-recycling machinery: loom's Allocator is the sole authority on raw
// lifecycle. Spawn (the only caller) never runs before Finalize has built
// ts.tbl, so there is no nil case to guard here.
func (ts *TypedStore[A]) ensureCapacity(n uint32) {
	ts.tableMu.Lock()
	defer ts.tableMu.Unlock()
	if n <= ts.tableRows {
		return
	}
	if _, err := ts.tbl.NewEntries(int(n - ts.tableRows)); err != nil {
		invariantPanic(MissingRequiredInitError{Archetype: ts.name, Component: "<table-growth>"})
	}
	ts.tableRows = n
}

// Spawn stages a new entity of archetype A. The returned EntityID is valid
// immediately for storing and comparing, but the entity is "pending":
// required components are not readable until the next reconcile applies
// init and promotes it into the live snapshot.
func (ts *TypedStore[A]) Spawn(ctx *Context, init ...func(raw uint32)) EntityID[A] {
	raw, gen := ts.alloc.Spawn(ctx.worker, init...)
	ts.ensureCapacity(raw + 1)
	ts.pending.Add(raw)
	return EntityID[A]{raw: raw, generation: gen}
}

// FlagForDelete requests deletion of id. An expired id is a silent no-op.
func (ts *TypedStore[A]) FlagForDelete(ctx *Context, id EntityID[A]) {
	ts.alloc.FlagForDelete(ctx.worker, id.raw, id.generation)
}

// Retain records a strong reference to id under the debug reference
// tracker (a no-op when Config.debugRefcount is unset). Every Retain must
// be matched by a Release before the entity's finalizers clear, or
// reconcile panics with DanglingReferenceError.
func (ts *TypedStore[A]) Retain(id EntityID[A]) {
	ts.tracker.incr(ts.id, id.raw)
}

// Release drops a strong reference previously recorded by Retain.
func (ts *TypedStore[A]) Release(id EntityID[A]) {
	ts.tracker.decr(ts.id, id.raw)
}

// Valid reports whether id's generation still matches the slot's current
// generation and the slot is live.
func (ts *TypedStore[A]) Valid(id EntityID[A]) bool {
	return ts.alloc.generation(id.raw) == id.generation && ts.live.Contains(id.raw)
}

// checkLive panics with ExpiredEntityError if id's generation is stale.
// Every accessor call that dereferences an entity routes through this.
func (ts *TypedStore[A]) checkLive(id EntityID[A]) {
	if cur := ts.alloc.generation(id.raw); cur != id.generation {
		invariantPanic(ExpiredEntityError{
			Archetype: ts.name, Raw: id.raw, Generation: id.generation, Current: cur,
		})
	}
}

// Snapshot returns a copyable, read-only view of the raws live at the
// instant it was taken: the entity iterator's backing set for one tick.
func (ts *TypedStore[A]) Snapshot() Snapshot {
	return Snapshot{raws: ts.live.Clone().ToArray()}
}

// Snapshot is the immutable, copyable live-set view entity iteration needs,
// valid only for the tick that produced it. Rearrangement (the only thing
// that could invalidate it) is defined to run only between ticks, when no
// iterator exists.
type Snapshot struct {
	raws []uint32
}

func (s Snapshot) Len() int        { return len(s.raws) }
func (s Snapshot) At(i int) uint32 { return s.raws[i] }
