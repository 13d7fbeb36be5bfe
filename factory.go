package loom

// archetypeNames is the process-wide archetype id -> display name registry,
// populated as archetypes are registered and consulted by ResourceType and
// the error types for diagnostics.
var archetypeNames = newNameCache(0)

func registerArchetypeName(id archetypeID, name string) {
	_ = archetypeNames.RegisterAt(int(id), name)
}

func archetypeName(id archetypeID) string {
	return archetypeNames.Name(int(id))
}
