/*
Package loom is a statically-archetyped Entity-Component-System runtime with
a conflict-aware parallel scheduler.

Entities are grouped into archetypes fixed at registration time: an entity's
component set never changes after it is spawned. Component storage comes in
three shapes per archetype: required simple components (dense, always
present for a live entity), optional simple or tree components (presence
tracked explicitly), and isotope components (one independent column per
runtime discriminant value). Systems declare the resources they read or
write; loom builds a static conflict graph from those declarations and
schedules systems across a worker pool so that no two conflicting systems
ever run concurrently, while independent systems do.

Basic usage:

	type Position struct{ X, Y float64 }
	type Velocity struct{ X, Y float64 }

	builder := loom.NewBuilder()
	bullets := loom.RegisterArchetype[Bullet](builder, "bullet")
	position := loom.RegisterSimple[Bullet, Position](bullets, loom.Required)
	velocity := loom.RegisterSimple[Bullet, Velocity](bullets, loom.Required)

	builder.Schedule(loom.SystemDescriptor{
		Name:   "motion",
		Claims: loom.Claims(position.Exclusive(), velocity.Shared()),
		Run: func(ctx *loom.Context) {
			it := bullets.Iterate(ctx)
			for it.Next() {
				pos := position.GetFromIter(it)
				vel := velocity.GetFromIter(it)
				pos.X += vel.X
				pos.Y += vel.Y
			}
		},
	})

	world, _ := builder.Finalize()
	for tick := 0; tick < 10; tick++ {
		world.Execute(loom.NoopTracer{})
	}

loom is built on github.com/TheBitDrifter/table for its dense per-archetype
column storage, github.com/TheBitDrifter/mask for resource-set membership
tests, and github.com/TheBitDrifter/bark for invariant-violation diagnostics.
*/
package loom
