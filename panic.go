package loom

import "github.com/TheBitDrifter/bark"

// invariantPanic panics with err annotated by a stack trace. Every
// programmer-invariant-violation panic in this package goes through this
// one call site.
func invariantPanic(err error) {
	panic(bark.AddTrace(err))
}
