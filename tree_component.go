package loom

// TreeComponent is a handle to one (archetype, component type) tree store:
// the sparse-map equivalent of SimpleComponent's optional case, chosen
// per-component at registration for components expected to be sparsely
// populated.
type TreeComponent[A, T any] struct {
	archetype *TypedStore[A]
	name      string
	resource  ResourceType
	col       *treeColumn[T]
}

func (c TreeComponent[A, T]) Shared() Claim    { return Claim{Resource: c.resource, Mode: Shared} }
func (c TreeComponent[A, T]) Exclusive() Claim { return Claim{Resource: c.resource, Mode: Exclusive} }

func (c TreeComponent[A, T]) Get(id EntityID[A]) (*T, bool) {
	c.archetype.checkLive(id)
	return c.col.Get(id.raw)
}

func (c TreeComponent[A, T]) Set(id EntityID[A], v T) {
	c.archetype.checkLive(id)
	c.col.Set(id.raw, v)
}

func (c TreeComponent[A, T]) Clear(id EntityID[A]) {
	c.archetype.checkLive(id)
	c.col.Clear(id.raw)
}

func (c TreeComponent[A, T]) GetFromIter(it EntityCursor[A]) *T {
	v, _ := c.Get(it.Entity())
	return v
}

func (c TreeComponent[A, T]) asFinalizer() finalizerCheck {
	return finalizerCheck{
		name: c.name,
		present: func(raw uint32) bool {
			_, ok := c.col.Get(raw)
			return ok
		},
	}
}
