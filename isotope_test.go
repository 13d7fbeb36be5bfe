package loom

import (
	"sync"
	"testing"
	"time"
)

func TestFullIsotopeGetSetClear(t *testing.T) {
	store := newIsotopeStore[float64]()
	full := FullIsotope[testArch, float64]{store: store, compType: "weight"}

	if _, ok := full.Get(0, 1); ok {
		t.Fatalf("Get on a never-written discriminant reported present")
	}
	full.Set(0, 1, 2.5)
	v, ok := full.Get(0, 1)
	if !ok || *v != 2.5 {
		t.Fatalf("Get(0,1) = (%v,%v), want (2.5,true)", v, ok)
	}
	full.Clear(0, 1)
	if _, ok := full.Get(0, 1); ok {
		t.Fatalf("Get(0,1) after Clear still present")
	}
}

func TestPartialIsotopeOnlyCoversDeclaredDiscriminants(t *testing.T) {
	store := newIsotopeStore[float64]()
	p := &PartialIsotope[testArch, float64]{store: store, compType: "weight", discriminant: []Discriminant{1, 2}}
	p.Split()

	p.Set(0, 1, 10)
	v, ok := p.Get(0, 1)
	if !ok || *v != 10 {
		t.Fatalf("Get(0,1) = (%v,%v), want (10,true)", v, ok)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected a panic accessing a discriminant outside the declared set")
		}
	}()
	p.Get(0, 3)
}

type isotopeBullet struct{}

// Scenario: two systems with exclusive partial-isotope claims over disjoint
// discriminant sets of the same component run concurrently; a third system
// whose discriminant set overlaps both is serialized after them.
func TestEndToEndIsotopePartialDisjointConcurrency(t *testing.T) {
	b := NewBuilder()
	bullets := RegisterArchetype[isotopeBullet](b, "bullet")
	weight := RegisterIsotope[isotopeBullet, float64](bullets)

	w12 := weight.Partial(1, 2)
	w34 := weight.Partial(3, 4)
	w23 := weight.Partial(2, 3)
	w12.Split()
	w34.Split()
	w23.Split()

	started := make(chan string, 2)
	release := make(chan struct{})

	var mu sync.Mutex
	intervals := map[string][2]time.Time{}
	record := func(name string, start, end time.Time) {
		mu.Lock()
		intervals[name] = [2]time.Time{start, end}
		mu.Unlock()
	}

	rendezvous := func(name string) {
		started <- name
		<-release
	}

	b.Schedule(SystemDescriptor{
		Name:   "writer-12",
		Claims: Claims(w12.Claim(Exclusive)),
		Run: func(ctx *Context) {
			start := time.Now()
			rendezvous("writer-12")
			record("writer-12", start, time.Now())
		},
	})
	b.Schedule(SystemDescriptor{
		Name:   "writer-34",
		Claims: Claims(w34.Claim(Exclusive)),
		Run: func(ctx *Context) {
			start := time.Now()
			rendezvous("writer-34")
			record("writer-34", start, time.Now())
		},
	})
	b.Schedule(SystemDescriptor{
		Name:   "writer-23",
		Claims: Claims(w23.Claim(Exclusive)),
		Run: func(ctx *Context) {
			start := time.Now()
			record("writer-23", start, time.Now())
		},
	})

	go func() {
		<-started
		<-started
		close(release)
	}()

	w, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	w.Execute(NoopTracer{})

	mu.Lock()
	defer mu.Unlock()
	i12, i34, i23 := intervals["writer-12"], intervals["writer-34"], intervals["writer-23"]

	if !(i12[0].Before(i34[1]) && i34[0].Before(i12[1])) {
		t.Errorf("writer-12 %v and writer-34 %v did not overlap, want concurrent execution", i12, i34)
	}
	if i23[0].Before(i12[1]) {
		t.Errorf("writer-23 started at %v before writer-12 ended at %v, want serialized-after", i23[0], i12[1])
	}
	if i23[0].Before(i34[1]) {
		t.Errorf("writer-23 started at %v before writer-34 ended at %v, want serialized-after", i23[0], i34[1])
	}
}
