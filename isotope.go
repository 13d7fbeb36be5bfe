package loom

import (
	"reflect"
	"sync"

	"github.com/TheBitDrifter/mask"
)

// IsotopeComponent is the registration-time handle for one isotope
// component type of archetype A. Systems derive either a FullIsotope or a
// PartialIsotope accessor from it at schedule time.
type IsotopeComponent[A, T any] struct {
	archetype *TypedStore[A]
	name      string
	store     *isotopeStore[T]
}

// Full derives a full accessor: may read/write any discriminant, creating
// new ones on write.
func (c IsotopeComponent[A, T]) Full() FullIsotope[A, T] {
	return FullIsotope[A, T]{archetype: c.archetype, store: c.store, compType: c.name}
}

// FullClaim returns a claim covering every discriminant of this isotope
// component: it overlaps every other claim (full or partial) on the same
// (archetype, component), so it conflicts with any of them whenever either
// side is exclusive.
func (c IsotopeComponent[A, T]) FullClaim(mode Mode) Claim {
	return Claim{
		Resource: ResourceType{Kind: KindIsotopeFull, Archetype: c.archetype.id, Component: reflect.TypeFor[T]()},
		Mode:     mode,
	}
}

// Partial derives an accessor bound to a fixed discriminant set, known at
// descriptor (schedule) time. Call Split() once before first use.
func (c IsotopeComponent[A, T]) Partial(discriminants ...Discriminant) *PartialIsotope[A, T] {
	p := &PartialIsotope[A, T]{archetype: c.archetype, store: c.store, compType: c.name, discriminant: discriminants}
	return p
}

// Claim returns a claim covering exactly p's bound discriminant set: two
// partial claims with disjoint sets never conflict.
func (p *PartialIsotope[A, T]) Claim(mode Mode) Claim {
	return Claim{
		Resource: ResourceType{
			Kind:          KindIsotopePartial,
			Archetype:     p.archetype.id,
			Component:     reflect.TypeFor[T](),
			Discriminants: discriminantMask(p.discriminant),
			DiscList:      append([]Discriminant(nil), p.discriminant...),
		},
		Mode: mode,
	}
}

// isotopeStore backs one isotope component type for one archetype: an
// ordered mapping discriminant -> denseColumn[T]. New discriminants are
// created lazily on first write and persist for the remainder of the
// process.
type isotopeStore[T any] struct {
	mu      sync.RWMutex
	columns map[Discriminant]*denseColumn[T]
}

func newIsotopeStore[T any]() *isotopeStore[T] {
	return &isotopeStore[T]{columns: make(map[Discriminant]*denseColumn[T])}
}

func (s *isotopeStore[T]) columnFull(d Discriminant) *denseColumn[T] {
	s.mu.RLock()
	col, ok := s.columns[d]
	s.mu.RUnlock()
	if ok {
		return col
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.columns[d]; ok {
		return col
	}
	col = newDenseColumn[T]()
	s.columns[d] = col
	return col
}

// columnExisting returns the column for d without creating it; used by
// FullIsotope's Get and Clear, so reading or clearing a discriminant never
// materializes its column. PartialIsotope.Split uses columnFull instead.
func (s *isotopeStore[T]) columnExisting(d Discriminant) (*denseColumn[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.columns[d]
	return col, ok
}

// FullIsotope is an accessor that may read or write any discriminant of an
// isotope component, creating new discriminant columns on write.
type FullIsotope[A, T any] struct {
	archetype *TypedStore[A]
	store     *isotopeStore[T]
	compType  string
}

// Get returns the value at (raw, d), or false if absent.
func (f FullIsotope[A, T]) Get(raw uint32, d Discriminant) (*T, bool) {
	col, ok := f.store.columnExisting(d)
	if !ok {
		return nil, false
	}
	return col.Get(raw)
}

// Set writes (raw, d), materializing the discriminant's column if new.
func (f FullIsotope[A, T]) Set(raw uint32, d Discriminant, v T) {
	f.store.columnFull(d).Set(raw, v)
}

// Clear removes the value at (raw, d), if present.
func (f FullIsotope[A, T]) Clear(raw uint32, d Discriminant) {
	if col, ok := f.store.columnExisting(d); ok {
		col.Clear(raw)
	}
}

// PartialIsotope is an accessor bound to a fixed, finite set of
// discriminants chosen at system-build time, giving O(1) per-discriminant
// access and letting two partial writers with disjoint discriminant sets be
// scheduled concurrently.
type PartialIsotope[A, T any] struct {
	archetype    *TypedStore[A]
	store        *isotopeStore[T]
	compType     string
	discriminant []Discriminant
	bound        []*denseColumn[T] // columnFull result per entry in discriminant, in order
}

// Split binds this partial accessor's declared discriminants to their
// backing columns, materializing any that don't yet exist. Called once per
// system invocation before the first Get/Set.
func (p *PartialIsotope[A, T]) Split() {
	p.bound = make([]*denseColumn[T], len(p.discriminant))
	for i, d := range p.discriminant {
		p.bound[i] = p.store.columnFull(d)
	}
}

func (p PartialIsotope[A, T]) indexOf(d Discriminant) int {
	for i, bd := range p.discriminant {
		if bd == d {
			return i
		}
	}
	invariantPanic(UndeclaredDiscriminantError{Component: p.compType, Discriminant: d})
	return -1
}

// Get returns the value at (raw, d). d must be one of the discriminants
// this accessor was declared over.
func (p PartialIsotope[A, T]) Get(raw uint32, d Discriminant) (*T, bool) {
	return p.bound[p.indexOf(d)].Get(raw)
}

// Set writes (raw, d). d must be one of the discriminants this accessor was
// declared over.
func (p PartialIsotope[A, T]) Set(raw uint32, d Discriminant, v T) {
	p.bound[p.indexOf(d)].Set(raw, v)
}

// discriminantMask returns a discriminant set as the mask.Mask used by the
// conflict graph to test disjointness.
func discriminantMask(ds []Discriminant) mask.Mask {
	var m mask.Mask
	for _, d := range ds {
		m.Mark(uint32(d))
	}
	return m
}
