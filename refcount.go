package loom

import "sync"

// refKey identifies one tracked slot: an (archetype, raw) pair.
type refKey struct {
	archetype archetypeID
	raw       uint32
}

// refTracker is the debug-mode interface selected by maybeStoreMap: live
// tracking or a no-op shim, chosen once from Config.debugRefcount when a
// World is built.
type refTracker interface {
	incr(archetype archetypeID, raw uint32)
	decr(archetype archetypeID, raw uint32)
	count(archetype archetypeID, raw uint32) int32
}

// storeMapTracker is the live refTracker: a mutex-guarded counter map.
type storeMapTracker struct {
	mu     sync.Mutex
	counts map[refKey]int32
}

func newStoreMapTracker() *storeMapTracker {
	return &storeMapTracker{counts: make(map[refKey]int32)}
}

func (t *storeMapTracker) incr(archetype archetypeID, raw uint32) {
	t.mu.Lock()
	t.counts[refKey{archetype, raw}]++
	t.mu.Unlock()
}

func (t *storeMapTracker) decr(archetype archetypeID, raw uint32) {
	t.mu.Lock()
	k := refKey{archetype, raw}
	t.counts[k]--
	if t.counts[k] <= 0 {
		delete(t.counts, k)
	}
	t.mu.Unlock()
}

func (t *storeMapTracker) count(archetype archetypeID, raw uint32) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[refKey{archetype, raw}]
}

// noopTracker is the release-mode shim: every operation is free.
type noopTracker struct{}

func (noopTracker) incr(archetypeID, uint32)        {}
func (noopTracker) decr(archetypeID, uint32)        {}
func (noopTracker) count(archetypeID, uint32) int32 { return 0 }

// maybeStoreMap selects between the live and no-op trackers at World
// construction time, per Config.debugRefcount. The toggle is a runtime
// flag resolved once at Finalize rather than a build tag, since the live
// path's only extra cost once selected is a mutex-guarded map lookup.
func maybeStoreMap(debug bool) refTracker {
	if debug {
		return newStoreMapTracker()
	}
	return noopTracker{}
}
