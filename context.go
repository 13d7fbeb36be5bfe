package loom

// Context is the per-invocation handle a system uses to spawn and delete
// entities and to open iterators. worker identifies which allocator shard
// and allocator-facing operations this call binds to for the remainder of
// the current system invocation.
type Context struct {
	worker int
	world  *World
}

// Worker returns the worker index this invocation is bound to.
func (c *Context) Worker() int { return c.worker }

// World returns the World this context belongs to.
func (c *Context) World() *World { return c.world }
