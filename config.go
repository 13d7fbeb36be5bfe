package loom

import "github.com/TheBitDrifter/table"

// Config holds global, process-wide runtime configuration. It must be set
// before Builder.Finalize; mutating it afterward has no effect on an
// already-finalized World.
var Config config = config{
	workerPoolSize: 4,
	shardCount:     4,
	shardPolicy:    StaticShardPolicy{},
}

type config struct {
	tableEvents    table.TableEvents
	workerPoolSize int
	shardCount     int
	shardPolicy    ShardPolicy
	debugRefcount  bool
}

// SetTableEvents configures the table event callbacks used by every
// archetype's dense column table.
func (c *config) SetTableEvents(te table.TableEvents) {
	c.tableEvents = te
}

// SetWorkerPoolSize sets the number of send-system worker goroutines. The
// main thread that calls World.Execute always additionally drains
// main-thread-only systems.
func (c *config) SetWorkerPoolSize(n int) {
	if n < 1 {
		n = 1
	}
	c.workerPoolSize = n
}

// SetShardCount sets the number of entity-allocator shards. Typically equal
// to the worker pool size so each worker has an uncontended local shard.
func (c *config) SetShardCount(n int) {
	if n < 1 {
		n = 1
	}
	c.shardCount = n
}

// SetShardPolicy sets the shard-assignment policy used by new allocators.
func (c *config) SetShardPolicy(p ShardPolicy) {
	c.shardPolicy = p
}

// SetDebugRefcount toggles the debug reference tracker. When enabled, every
// strong entity reference increments a per-(archetype,raw) counter and
// reconcile-time deletion asserts it is zero.
func (c *config) SetDebugRefcount(enabled bool) {
	c.debugRefcount = enabled
}
