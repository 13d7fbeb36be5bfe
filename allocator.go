package loom

import (
	"sync"
	"sync/atomic"

	"github.com/google/btree"
)

// ShardPolicy chooses which shard a worker's allocation request lands on.
// Two policies are supported, static and randomized; the policy is
// pluggable, and World wires the static one by default.
type ShardPolicy interface {
	ShardFor(worker int, shardCount int) int
}

// StaticShardPolicy assigns shard == worker index (mod shard count). This is
// the policy World wires by default.
type StaticShardPolicy struct{}

func (StaticShardPolicy) ShardFor(worker, shardCount int) int {
	if shardCount <= 0 {
		return 0
	}
	return worker % shardCount
}

// RandomizedShardPolicy picks a shard per call via a thread-local RNG,
// avoiding the need for worker-shard affinity at the cost of more frequent
// cross-shard reserve claims. Uses math/rand/v2's per-goroutine source.
type RandomizedShardPolicy struct{}

func (RandomizedShardPolicy) ShardFor(worker, shardCount int) int {
	if shardCount <= 0 {
		return 0
	}
	return randIntN(shardCount)
}

// birthRecord is a staged entity creation: the raw+generation the allocator
// already minted, plus the initializer closures that populate its required
// components once reconcile makes it live.
type birthRecord struct {
	raw        uint32
	generation uint32
	init       []func(raw uint32)
}

// deleteFlag is a staged deletion request, re-queued across reconciles until
// its finalizers clear.
type deleteFlag struct {
	raw        uint32
	generation uint32
}

// deferredMutation is a write a system could not apply immediately because
// its target entity was still pending.
type deferredMutation struct {
	raw        uint32
	generation uint32
	apply      func(raw uint32)
}

// shard is one worker's allocation partition: a local free-list (with a
// btree sorted-set hint for smallest-first reuse), a reserve of unused raws
// claimed from the shared block counter, and this worker's offline buffer
// for the in-flight tick.
type shard struct {
	mu       sync.Mutex
	free     []uint32
	freeHint *btree.BTreeG[uint32]
	reserve  []uint32

	births   []birthRecord
	deletes  []deleteFlag
	deferred []deferredMutation
}

func newShard() *shard {
	return &shard{
		freeHint: btree.NewG(32, func(a, b uint32) bool { return a < b }),
	}
}

// Allocator hands out and recycles raw entity slots for one archetype. It
// never blocks on another worker's shard in the common path; claiming a
// fresh block is the only cross-shard contention point: an atomic add on the
// shared counter plus a brief write lock on the generation table to grow it.
type Allocator struct {
	shards     []*shard
	policy     ShardPolicy
	blockSize  uint32
	nextBlock  atomic.Uint32
	gens       []uint32 // raw -> current generation; grown by reconcile/block-claim
	gensMu     sync.RWMutex
	archetype  archetypeID
	archetypeN string

	freeNext atomic.Uint32 // round-robin cursor over shards for freeRaw
}

func newAllocator(id archetypeID, name string, shardCount int, policy ShardPolicy, blockSize uint32) *Allocator {
	if blockSize == 0 {
		blockSize = 64
	}
	a := &Allocator{
		policy:     policy,
		blockSize:  blockSize,
		archetype:  id,
		archetypeN: name,
	}
	a.shards = make([]*shard, shardCount)
	for i := range a.shards {
		a.shards[i] = newShard()
	}
	return a
}

func (a *Allocator) shardFor(worker int) *shard {
	idx := a.policy.ShardFor(worker, len(a.shards))
	return a.shards[idx]
}

func (a *Allocator) generation(raw uint32) uint32 {
	a.gensMu.RLock()
	defer a.gensMu.RUnlock()
	if int(raw) >= len(a.gens) {
		return 0
	}
	return a.gens[raw]
}

func (a *Allocator) growGens(upTo uint32) {
	a.gensMu.Lock()
	defer a.gensMu.Unlock()
	if int(upTo) <= len(a.gens) {
		return
	}
	next := make([]uint32, upTo)
	copy(next, a.gens)
	a.gens = next
}

// claimBlock grabs a fresh, never-before-used range of raws for shard s.
// The range comes from an atomic add on the shared counter; growing the
// generation table to cover it briefly takes gensMu's write lock. Called by
// allocate only when both the shard's free-list and reserve are empty.
func (a *Allocator) claimBlock(s *shard) {
	start := a.nextBlock.Add(a.blockSize) - a.blockSize
	a.growGens(start + a.blockSize)
	for i := uint32(0); i < a.blockSize; i++ {
		s.reserve = append(s.reserve, start+i)
	}
}

// Allocate returns a fresh or recycled (raw, generation) for worker. It does
// not block on any other worker's shard in the common path; only a new
// block claim writes shared state (see claimBlock).
func (a *Allocator) Allocate(worker int) (uint32, uint32) {
	s := a.shardFor(worker)
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.free) > 0 {
		min, ok := s.freeHint.Min()
		if !ok {
			min = s.free[0]
		}
		s.freeHint.Delete(min)
		s.free = removeValue(s.free, min)
		return min, a.generation(min)
	}
	if len(s.reserve) == 0 {
		a.claimBlock(s)
	}
	raw := s.reserve[len(s.reserve)-1]
	s.reserve = s.reserve[:len(s.reserve)-1]
	return raw, a.generation(raw)
}

func removeValue(s []uint32, v uint32) []uint32 {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// FlagForDelete records a deletion request in worker's shard buffer. An
// expired id (generation mismatch) is a silent no-op.
func (a *Allocator) FlagForDelete(worker int, raw, generation uint32) {
	if a.generation(raw) != generation {
		return
	}
	s := a.shardFor(worker)
	s.mu.Lock()
	s.deletes = append(s.deletes, deleteFlag{raw: raw, generation: generation})
	s.mu.Unlock()
}

// Spawn stages a birth: raw+generation are minted immediately (the entity is
// already addressable), but init does not run until reconcile.
func (a *Allocator) Spawn(worker int, init ...func(raw uint32)) (uint32, uint32) {
	raw, gen := a.Allocate(worker)
	s := a.shardFor(worker)
	s.mu.Lock()
	s.births = append(s.births, birthRecord{raw: raw, generation: gen, init: init})
	s.mu.Unlock()
	return raw, gen
}

// DeferMutation stages a write that could not be applied because its target
// entity is still pending; applied after births at reconcile.
func (a *Allocator) DeferMutation(worker int, raw, generation uint32, apply func(raw uint32)) {
	s := a.shardFor(worker)
	s.mu.Lock()
	s.deferred = append(s.deferred, deferredMutation{raw: raw, generation: generation, apply: apply})
	s.mu.Unlock()
}

// freeRaw bumps the slot's generation and returns it to a shard's
// free-list. reconcile is single-threaded, so there is no "calling worker"
// at this point; freed raws are distributed round-robin across every
// shard (rather than piled onto one) so that Allocate, which only ever
// looks at the calling worker's own shard, actually finds recycled raws
// regardless of which worker asks.
func (a *Allocator) freeRaw(raw uint32) {
	a.gensMu.Lock()
	if int(raw) < len(a.gens) {
		a.gens[raw]++
	}
	a.gensMu.Unlock()

	idx := int(a.freeNext.Add(1)-1) % len(a.shards)
	s := a.shards[idx]
	s.mu.Lock()
	s.free = append(s.free, raw)
	s.freeHint.ReplaceOrInsert(raw)
	s.mu.Unlock()
}
