package loom

import (
	"fmt"
	"reflect"

	"github.com/TheBitDrifter/mask"
)

// Mode is the access mode a system declares for a resource claim.
type Mode uint8

const (
	Shared Mode = iota
	Exclusive
)

// ResourceKind distinguishes the four claimable resource shapes.
type ResourceKind uint8

const (
	KindGlobal ResourceKind = iota
	KindSimpleStore
	KindIsotopeFull
	KindIsotopePartial
)

// ResourceType identifies a single claimable resource: a global cell, a
// simple/tree store (archetype, component), an isotope-full store, or an
// isotope-partial store bound to a fixed discriminant set. Discriminants is
// only meaningful for KindIsotopePartial: two partial claims over disjoint
// discriminant sets of the same component never conflict.
type ResourceType struct {
	Kind          ResourceKind
	Archetype     archetypeID
	Component     reflect.Type
	Discriminants mask.Mask
	DiscList      []Discriminant // enumeration of Discriminants, for lock registry construction
}

func (r ResourceType) String() string {
	switch r.Kind {
	case KindGlobal:
		return fmt.Sprintf("Global(%s)", r.Component)
	case KindIsotopeFull:
		return fmt.Sprintf("IsotopeFull(%s,%s)", archetypeName(r.Archetype), r.Component)
	case KindIsotopePartial:
		return fmt.Sprintf("IsotopePartial(%s,%s,%v)", archetypeName(r.Archetype), r.Component, r.Discriminants)
	default:
		return fmt.Sprintf("SimpleStore(%s,%s)", archetypeName(r.Archetype), r.Component)
	}
}

// Claim is one (ResourceType, Mode) pair declared by a system.
type Claim struct {
	Resource ResourceType
	Mode     Mode
}

// ClaimSet is the full set of resources a system declares at schedule time.
type ClaimSet []Claim

// Claims builds a ClaimSet from a variadic list of per-component claims.
func Claims(cs ...Claim) ClaimSet { return ClaimSet(cs) }

// overlaps reports whether two resource types ever refer to the same
// underlying store/cell, independent of mode.
func overlaps(a, b ResourceType) bool {
	if a.Kind == KindGlobal || b.Kind == KindGlobal {
		return a.Kind == KindGlobal && b.Kind == KindGlobal && a.Component == b.Component
	}
	if a.Archetype != b.Archetype || a.Component != b.Component {
		return false
	}
	// Same (archetype, component). A full-isotope (or non-isotope simple)
	// claim can touch any discriminant, so it overlaps everything here.
	if a.Kind != KindIsotopePartial || b.Kind != KindIsotopePartial {
		return true
	}
	// Both partial: only conflict if the declared discriminant sets intersect.
	return a.Discriminants.ContainsAny(b.Discriminants)
}

// conflicts reports whether two claims may never run concurrently.
func conflicts(a, b Claim) bool {
	if !overlaps(a.Resource, b.Resource) {
		return false
	}
	return a.Mode == Exclusive || b.Mode == Exclusive
}

// conflictsAny reports whether any claim in a conflicts with any claim in b.
func (a ClaimSet) conflictsAny(b ClaimSet) bool {
	for _, ca := range a {
		for _, cb := range b {
			if conflicts(ca, cb) {
				return true
			}
		}
	}
	return false
}
