package loom

import "github.com/TheBitDrifter/table"

// reconcile drains every shard of ts's allocator between ticks, applying
// births, then finalizer-gated deletions, then deferred mutations, in that
// order, single-threaded. It runs once per archetype per
// World.Execute call, after the tick's systems have all completed.
func (ts *TypedStore[A]) reconcile() {
	for _, s := range ts.alloc.shards {
		s.mu.Lock()
		births := s.births
		s.births = nil
		deletes := s.deletes
		s.deletes = nil
		deferred := s.deferred
		s.deferred = nil
		s.mu.Unlock()

		for _, b := range births {
			for _, init := range b.init {
				init(b.raw)
			}
			ts.pending.Remove(b.raw)
			ts.live.Add(b.raw)
		}

		for _, d := range deletes {
			if ts.alloc.generation(d.raw) != d.generation {
				continue
			}
			blocked := false
			for _, f := range ts.finalizers {
				if f.present(d.raw) {
					blocked = true
					break
				}
			}
			if blocked {
				s.mu.Lock()
				s.deletes = append(s.deletes, d)
				s.mu.Unlock()
				continue
			}
			if count := ts.tracker.count(ts.id, d.raw); count != 0 {
				invariantPanic(DanglingReferenceError{Archetype: ts.name, Raw: d.raw, Count: count})
			}
			ts.live.Remove(d.raw)
			ts.alloc.freeRaw(d.raw)
		}

		for _, m := range deferred {
			if ts.alloc.generation(m.raw) != m.generation {
				continue
			}
			m.apply(m.raw)
		}
	}
}

// finalizeStore builds ts's dense table, allocator, and debug-refcount
// tracker. Called once per archetype from Builder.Finalize, after which ts
// is ready for Spawn/Iterate calls.
func (ts *TypedStore[A]) finalizeStore(debug bool) error {
	tbl, err := table.NewTableBuilder().
		WithSchema(ts.schema).
		WithEntryIndex(entryIndex).
		WithElementTypes(ts.elemTypes...).
		WithEvents(Config.tableEvents).
		Build()
	if err != nil {
		return err
	}
	ts.tbl = tbl
	ts.alloc = newAllocator(ts.id, ts.name, Config.shardCount, Config.shardPolicy, 0)
	ts.tracker = maybeStoreMap(debug)
	ts.built = true
	return nil
}
