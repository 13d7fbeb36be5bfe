package loom

import (
	"reflect"

	"github.com/TheBitDrifter/table"
	"golang.org/x/sync/errgroup"
)

// SystemDescriptor is a system's registration-time declaration: its
// resource claims, whether it must run on the calling goroutine, which
// partitions it orders itself before/after, and its body.
type SystemDescriptor struct {
	Name           string
	Claims         ClaimSet
	MainThreadOnly bool
	Before         []string
	After          []string
	Run            func(ctx *Context)
}

// registeredArchetype is the type-erased handle Builder/World hold for one
// TypedStore[A], since a Builder accumulates archetypes of many distinct A.
type registeredArchetype interface {
	finalizeStore(debug bool) error
	reconcile()
}

// registeredGlobal is the type-erased handle for one Global[T].
type registeredGlobal interface {
	validate() error
}

// finalizerSource is implemented by any component accessor that can gate
// physical deletion.
type finalizerSource interface {
	asFinalizer() finalizerCheck
}

// Builder accumulates archetypes, globals, and systems. Nothing it produces
// is usable until Finalize succeeds.
type Builder struct {
	nextArchetype archetypeID
	archetypes    []registeredArchetype
	globals       []registeredGlobal
	systems       []systemSpec
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// RegisterArchetype declares a new archetype named name, identified by the
// type parameter A. A's component set and storage are fixed for the
// lifetime of the resulting World: there is no later AddComponent or
// TransferEntities.
func RegisterArchetype[A any](b *Builder, name string) *TypedStore[A] {
	id := b.nextArchetype
	b.nextArchetype++
	ts := newTypedStore[A](id, name)
	b.archetypes = append(b.archetypes, ts)
	return ts
}

// RegisterSimple declares a simple component of archetype A. Required
// components are stored in the archetype's dense table.Table and are
// guaranteed present for every live entity outside the creation tick;
// optional components are presence-tracked in a denseColumn.
func RegisterSimple[A, T any](store *TypedStore[A], presence PresenceKind) SimpleComponent[A, T] {
	name := reflect.TypeFor[T]().String()
	resource := componentResource(store.id, reflect.TypeFor[T]())
	if presence == Required {
		iden := table.FactoryNewElementType[T]()
		store.schema.Register(iden)
		store.elemTypes = append(store.elemTypes, iden)
		return SimpleComponent[A, T]{
			archetype: store, name: name, resource: resource,
			required: true, dense: table.FactoryNewAccessor[T](iden),
		}
	}
	return SimpleComponent[A, T]{
		archetype: store, name: name, resource: resource,
		col: newDenseColumn[T](),
	}
}

// RegisterTree declares a sparse (map-backed) optional component of
// archetype A, for components expected to be rarely present relative to
// the archetype's population.
func RegisterTree[A, T any](store *TypedStore[A]) TreeComponent[A, T] {
	return TreeComponent[A, T]{
		archetype: store,
		name:      reflect.TypeFor[T]().String(),
		resource:  componentResource(store.id, reflect.TypeFor[T]()),
		col:       newTreeColumn[T](),
	}
}

// RegisterIsotope declares an isotope component of archetype A: one
// independent column per runtime discriminant value, accessed either fully
// or through a fixed-discriminant-set partial view.
func RegisterIsotope[A, T any](store *TypedStore[A]) IsotopeComponent[A, T] {
	return IsotopeComponent[A, T]{
		archetype: store,
		name:      reflect.TypeFor[T]().String(),
		store:     newIsotopeStore[T](),
	}
}

// RegisterGlobal declares a process-wide typed cell. initial may be nil,
// in which case Finalize fails with MissingGlobalInitError unless Set is
// called on the returned Global before Finalize runs.
func RegisterGlobal[T any](b *Builder, initial *T) *Global[T] {
	g := newGlobal(initial)
	b.globals = append(b.globals, g)
	return g
}

// MarkFinalizer registers c as a finalizer for store: entities flagged for
// deletion are not physically removed while c reports them present.
func MarkFinalizer[A any](store *TypedStore[A], c finalizerSource) {
	store.finalizers = append(store.finalizers, c.asFinalizer())
}

// Schedule registers one system. Before/After reference partition names,
// created implicitly on first reference; a partition has no body and
// completes the instant its own dependencies do.
func (b *Builder) Schedule(desc SystemDescriptor) {
	b.systems = append(b.systems, systemSpec{
		desc:   desc,
		claims: desc.Claims,
		unsend: desc.MainThreadOnly,
		before: desc.Before,
		after:  desc.After,
	})
}

// Finalize validates every registered global, builds every archetype's
// storage and allocator, constructs the static conflict/partition graph
// (failing on the first detected cycle or starved node), and returns an
// immutable World.
func (b *Builder) Finalize() (*World, error) {
	for _, g := range b.globals {
		if err := g.validate(); err != nil {
			return nil, err
		}
	}
	var eg errgroup.Group
	for _, a := range b.archetypes {
		a := a
		eg.Go(func() error {
			return a.finalizeStore(Config.debugRefcount)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g, err := buildGraph(b.systems)
	if err != nil {
		return nil, err
	}
	return &World{
		graph:          g,
		archetypes:     b.archetypes,
		locks:          buildLockRegistry(b.systems),
		workerPoolSize: Config.workerPoolSize,
	}, nil
}

// World is the immutable, schedulable runtime a Builder produces.
type World struct {
	graph          *graph
	archetypes     []registeredArchetype
	locks          *lockRegistry
	workerPoolSize int
}

// Execute runs one full tick: the conflict-graph-scheduled systems, then
// reconciliation of every archetype's offline buffer. Call it from the same
// goroutine every tick; main-thread-only systems run on whichever goroutine
// calls Execute.
func (w *World) Execute(tracer Tracer) {
	if tracer == nil {
		tracer = NoopTracer{}
	}
	tracer.TickStart()
	w.tick(tracer)
	tracer.ReconcileStart()
	var eg errgroup.Group
	panics := make([]any, len(w.archetypes))
	for i, a := range w.archetypes {
		i, a := i, a
		eg.Go(func() error {
			defer func() { panics[i] = recover() }()
			a.reconcile()
			return nil
		})
	}
	_ = eg.Wait() // each archetype's offline buffer is independent of every other's
	// Re-raise a reconcile panic on the calling goroutine so callers of
	// Execute can recover it.
	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	tracer.ReconcileEnd()
}
