package loom

import "math/rand/v2"

// randIntN returns a pseudo-random int in [0, n) using the per-goroutine
// default source, for RandomizedShardPolicy. Stdlib only: no RNG library
// appears anywhere in the example corpus.
func randIntN(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}
