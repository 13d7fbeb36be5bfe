package loom

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// lockKey identifies one runtime mutex in the scheduler's resource-lock
// registry. For KindIsotopePartial, one key exists per discriminant value a
// partial claim was ever declared over, so two writers with disjoint
// discriminant sets never contend on the same lock even though they share a
// (archetype, component) pair. Every other kind locks its whole
// store as one unit, which is safe because a full claim on that store
// conflicts with any partial claim on it in the conflict graph whenever
// either side is exclusive, so a writer and any other claimant are never
// scheduled concurrently in the first place.
type lockKey struct {
	kind      ResourceKind
	archetype archetypeID
	component reflect.Type
	disc      Discriminant
}

func lockKeysFor(r ResourceType) []lockKey {
	if r.Kind == KindIsotopePartial {
		keys := make([]lockKey, len(r.DiscList))
		for i, d := range r.DiscList {
			keys[i] = lockKey{kind: r.Kind, archetype: r.Archetype, component: r.Component, disc: d}
		}
		return keys
	}
	return []lockKey{{kind: r.Kind, archetype: r.Archetype, component: r.Component}}
}

func (k lockKey) sortKey() string {
	return fmt.Sprintf("%d|%d|%s|%d", k.kind, k.archetype, k.component, k.disc)
}

// lockRegistry is the scheduler's deadlock-free safety net underneath the
// conflict graph: every resource a system ever claims gets exactly one
// *sync.RWMutex here, built once at Finalize.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[lockKey]*sync.RWMutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[lockKey]*sync.RWMutex)}
}

func (lr *lockRegistry) get(k lockKey) *sync.RWMutex {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	l, ok := lr.locks[k]
	if !ok {
		l = &sync.RWMutex{}
		lr.locks[k] = l
	}
	return l
}

func buildLockRegistry(specs []systemSpec) *lockRegistry {
	lr := newLockRegistry()
	for _, s := range specs {
		for _, c := range s.claims {
			for _, k := range lockKeysFor(c.Resource) {
				lr.get(k)
			}
		}
	}
	return lr
}

type heldLock struct {
	mu        *sync.RWMutex
	exclusive bool
}

// acquireLocks takes every lock a claim set touches in one canonical,
// deterministic order (sorted by lockKey), so two systems that both need a
// disjoint-but-overlapping set of locks can never deadlock waiting on each
// other in opposite orders.
func acquireLocks(reg *lockRegistry, claims ClaimSet) []heldLock {
	exclusive := make(map[lockKey]bool)
	for _, c := range claims {
		for _, k := range lockKeysFor(c.Resource) {
			if c.Mode == Exclusive {
				exclusive[k] = true
			} else if _, ok := exclusive[k]; !ok {
				exclusive[k] = false
			}
		}
	}
	keys := make([]lockKey, 0, len(exclusive))
	for k := range exclusive {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].sortKey() < keys[j].sortKey() })

	held := make([]heldLock, 0, len(keys))
	for _, k := range keys {
		l := reg.get(k)
		excl := exclusive[k]
		if excl {
			l.Lock()
		} else {
			l.RLock()
		}
		held = append(held, heldLock{mu: l, exclusive: excl})
	}
	return held
}

func releaseLocks(held []heldLock) {
	for i := len(held) - 1; i >= 0; i-- {
		if held[i].exclusive {
			held[i].mu.Unlock()
		} else {
			held[i].mu.RUnlock()
		}
	}
}

// tick runs the conflict/partition graph to completion once. Send systems
// run on a fixed worker pool draining a shared ready queue; unsend
// (main-thread-only) systems run on the goroutine that called Execute, via
// a separate single-consumer queue. Partition nodes have no body and
// complete the instant their dependencies do.
func (w *World) tick(tracer Tracer) {
	g := w.graph
	n := len(g.nodes)
	if n == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)
	readyCh := make(chan *Node, n)
	mainCh := make(chan *Node, n)

	var enqueue func(nd *Node)
	enqueue = func(nd *Node) {
		nd.state.Store(int32(StateRunnable))
		if nd.Kind == NodePartition {
			w.completeNode(nd, tracer, &wg, enqueue)
			return
		}
		if nd.Kind == NodeUnsend {
			mainCh <- nd
		} else {
			readyCh <- nd
		}
	}

	for _, nd := range g.nodes {
		nd.remaining.Store(nd.indegree)
		nd.state.Store(int32(StatePending))
	}
	for _, nd := range g.nodes {
		if nd.indegree == 0 {
			enqueue(nd)
		}
	}

	for i := 0; i < w.workerPoolSize; i++ {
		idx := i
		go func() {
			for nd := range readyCh {
				w.runNode(nd, idx, tracer, &wg, enqueue)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(readyCh)
		close(mainCh)
	}()

	for nd := range mainCh {
		w.runNode(nd, w.workerPoolSize, tracer, &wg, enqueue)
	}
}

func (w *World) runNode(nd *Node, worker int, tracer Tracer, wg *sync.WaitGroup, enqueue func(*Node)) {
	nd.state.Store(int32(StateRunning))
	tracer.SystemStart(nd)
	held := acquireLocks(w.locks, nd.Claims)
	if nd.Run != nil {
		nd.Run(&Context{worker: worker, world: w})
	}
	releaseLocks(held)
	tracer.SystemEnd(nd)
	w.completeNode(nd, tracer, wg, enqueue)
}

func (w *World) completeNode(nd *Node, tracer Tracer, wg *sync.WaitGroup, enqueue func(*Node)) {
	nd.state.Store(int32(StateCompleted))
	if nd.Kind == NodePartition {
		tracer.PartitionComplete(nd)
	}
	wg.Done()
	for _, idx := range nd.out {
		dep := w.graph.nodes[idx]
		if dep.remaining.Add(-1) == 0 {
			enqueue(dep)
		}
	}
}
