package loom

import "fmt"

// Configuration errors, detected once at Builder.Finalize. All are fatal.

// CycleError reports a cycle discovered in the conflict/partition graph.
type CycleError struct {
	Path []string
}

func (e CycleError) Error() string {
	s := "cycle detected in system/partition graph: "
	for i, name := range e.Path {
		if i > 0 {
			s += " -> "
		}
		s += name
	}
	return s
}

// MissingGlobalInitError reports a global with no initial value and no
// mandatory-init registration satisfied before Finalize.
type MissingGlobalInitError struct {
	Type string
}

func (e MissingGlobalInitError) Error() string {
	return fmt.Sprintf("global %s has no initial value and was never initialized", e.Type)
}

// MissingRequiredInitError reports a required component with neither an
// intrinsic default nor an explicit init path wired into a birth record.
// Builder.Finalize does not check for this condition. The type is raised as
// a panic by SimpleComponent.Clear on a required component and by
// TypedStore.ensureCapacity when the dense table cannot grow.
type MissingRequiredInitError struct {
	Archetype string
	Component string
}

func (e MissingRequiredInitError) Error() string {
	return fmt.Sprintf("required component %s of archetype %s has no initializer", e.Component, e.Archetype)
}

// Programmer invariant violations, detected at runtime. All panic.

// ExpiredEntityError reports use of an entity ID whose generation no longer
// matches the slot's current generation.
type ExpiredEntityError struct {
	Archetype  string
	Raw        uint32
	Generation uint32
	Current    uint32
}

func (e ExpiredEntityError) Error() string {
	return fmt.Sprintf(
		"expired entity id: archetype %s raw %d generation %d (current %d)",
		e.Archetype, e.Raw, e.Generation, e.Current,
	)
}

// MissingRequiredComponentError reports a dereference of a required
// component that is, contrary to invariant, absent.
type MissingRequiredComponentError struct {
	Archetype string
	Component string
	Raw       uint32
}

func (e MissingRequiredComponentError) Error() string {
	return fmt.Sprintf("required component %s missing on archetype %s raw %d", e.Component, e.Archetype, e.Raw)
}

// DanglingReferenceError reports a nonzero debug refcount at reconcile-delete.
type DanglingReferenceError struct {
	Archetype string
	Raw       uint32
	Count     int32
}

func (e DanglingReferenceError) Error() string {
	return fmt.Sprintf("entity archetype %s raw %d deleted with %d dangling reference(s)", e.Archetype, e.Raw, e.Count)
}

// SharedWriteError reports a write attempted through a shared (read-only) accessor.
type SharedWriteError struct {
	Component string
}

func (e SharedWriteError) Error() string {
	return fmt.Sprintf("attempted write through a shared accessor for component %s", e.Component)
}

// UndeclaredDiscriminantError reports an access through a partial isotope
// accessor for a discriminant outside the set it was built with.
type UndeclaredDiscriminantError struct {
	Component    string
	Discriminant Discriminant
}

func (e UndeclaredDiscriminantError) Error() string {
	return fmt.Sprintf("discriminant %v not declared for partial isotope accessor of component %s", e.Discriminant, e.Component)
}

// SchedulerStarvedError reports nodes that Finalize's reachability pass
// (validateReachable) could not reach from the zero-indegree frontier: the
// conflict/partition graph was mis-constructed. Builder.Finalize returns it
// as an error rather than panicking; tick does not check for it again.
type SchedulerStarvedError struct {
	Pending []string
}

func (e SchedulerStarvedError) Error() string {
	return fmt.Sprintf("scheduler ready queue emptied with pending nodes: %v", e.Pending)
}
