package loom

import (
	"reflect"
	"sync"
)

// Global is a process-wide typed cell not keyed by entity. It participates
// in the conflict graph exactly like a component store.
type Global[T any] struct {
	mu       sync.RWMutex
	value    T
	hasInit  bool
	resource ResourceType
}

// newGlobal constructs a Global with either an intrinsic default (initial
// non-nil) or a mandatory-init requirement (initial nil): Finalize rejects
// an uninitialized mandatory global with MissingGlobalInitError.
func newGlobal[T any](initial *T) *Global[T] {
	g := &Global[T]{
		resource: ResourceType{Kind: KindGlobal, Component: reflect.TypeFor[T]()},
	}
	if initial != nil {
		g.value = *initial
		g.hasInit = true
	}
	return g
}

// Set assigns the global's value and marks it initialized.
func (g *Global[T]) Set(v T) {
	g.mu.Lock()
	g.value = v
	g.hasInit = true
	g.mu.Unlock()
}

// Get returns the current value. Callers hold the scheduler-granted
// resource lock for the duration of their system invocation, so no
// additional locking would be required in steady state; the mutex here is
// belt-and-suspenders for direct use outside a scheduled system (tests,
// setup code before Finalize).
func (g *Global[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// validate reports MissingGlobalInitError if Finalize is about to produce a
// World with this global never having received a value.
func (g *Global[T]) validate() error {
	if !g.hasInit {
		return MissingGlobalInitError{Type: g.resource.Component.String()}
	}
	return nil
}

// Shared returns a shared-mode claim on this global.
func (g *Global[T]) Shared() Claim { return Claim{Resource: g.resource, Mode: Shared} }

// Exclusive returns an exclusive-mode claim on this global.
func (g *Global[T]) Exclusive() Claim { return Claim{Resource: g.resource, Mode: Exclusive} }
