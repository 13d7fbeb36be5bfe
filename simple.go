package loom

import (
	"reflect"

	"github.com/TheBitDrifter/table"
)

// SimpleComponent is a handle to one (archetype, component type) simple
// store, required or optional, widened to cover both the dense
// required-component case (table.Accessor) and the presence-tracked
// optional case (denseColumn).
type SimpleComponent[A, T any] struct {
	archetype *TypedStore[A]
	name      string
	resource  ResourceType

	required bool
	dense    table.Accessor[T] // valid iff required
	col      *denseColumn[T]   // valid iff !required
}

// Shared returns a shared-mode (read) claim on this component.
func (c SimpleComponent[A, T]) Shared() Claim { return Claim{Resource: c.resource, Mode: Shared} }

// Exclusive returns an exclusive-mode (write) claim on this component.
func (c SimpleComponent[A, T]) Exclusive() Claim { return Claim{Resource: c.resource, Mode: Exclusive} }

// GetRequired returns a pointer to the value for id, asserting presence:
// a required component is only ever absent if a system dereferences a
// pending (creation-tick) entity, which is itself an invariant violation.
func (c SimpleComponent[A, T]) GetRequired(id EntityID[A]) *T {
	c.archetype.checkLive(id)
	if !c.archetype.live.Contains(id.raw) {
		invariantPanic(MissingRequiredComponentError{Archetype: c.archetype.name, Component: c.name, Raw: id.raw})
	}
	return c.dense.Get(int(id.raw), c.archetype.tbl)
}

// Get returns the value for id and whether it is present. Always present
// for required components on a live entity; may be absent for optional
// components.
func (c SimpleComponent[A, T]) Get(id EntityID[A]) (*T, bool) {
	c.archetype.checkLive(id)
	if c.required {
		if !c.archetype.live.Contains(id.raw) {
			return nil, false
		}
		return c.dense.Get(int(id.raw), c.archetype.tbl), true
	}
	return c.col.Get(id.raw)
}

// Set writes the value for id. Required components are written through the
// archetype's dense table; optional components through their denseColumn,
// which also marks the cell present.
func (c SimpleComponent[A, T]) Set(id EntityID[A], v T) {
	c.archetype.checkLive(id)
	if c.required {
		*c.dense.Get(int(id.raw), c.archetype.tbl) = v
		return
	}
	c.col.Set(id.raw, v)
}

// Clear removes an optional component's value. Not valid for required
// components, which must always carry a value for a live entity.
func (c SimpleComponent[A, T]) Clear(id EntityID[A]) {
	if c.required {
		invariantPanic(MissingRequiredInitError{Archetype: c.archetype.name, Component: c.name})
	}
	c.col.Clear(id.raw)
}

// GetFromIter is the iterator-bound read: call inside an EntityIterator
// loop instead of resolving an EntityID first.
func (c SimpleComponent[A, T]) GetFromIter(it EntityCursor[A]) *T {
	v, _ := c.Get(it.Entity())
	return v
}

// GetRequiredFromIter is GetFromIter for a required component.
func (c SimpleComponent[A, T]) GetRequiredFromIter(it EntityCursor[A]) *T {
	return c.GetRequired(it.Entity())
}

// asFinalizer builds a finalizerCheck closure for this component: used when
// the component was declared with MarkFinalizer.
func (c SimpleComponent[A, T]) asFinalizer() finalizerCheck {
	return finalizerCheck{
		name: c.name,
		present: func(raw uint32) bool {
			if c.required {
				return c.archetype.live.Contains(raw)
			}
			_, ok := c.col.Get(raw)
			return ok
		},
	}
}

func componentResource(archetype archetypeID, t reflect.Type) ResourceType {
	return ResourceType{Kind: KindSimpleStore, Archetype: archetype, Component: t}
}
