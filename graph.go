package loom

import (
	"fmt"
	"sync/atomic"
)

// NodeKind distinguishes the three schedulable item shapes.
type NodeKind uint8

const (
	NodeSend NodeKind = iota
	NodeUnsend
	NodePartition
)

// WakeupState is a Node's position in its tick lifecycle.
type WakeupState int32

const (
	StatePending WakeupState = iota
	StateRunnable
	StateRunning
	StateCompleted
)

// Node is one schedulable item: a thread-safe system, a main-thread-only
// system, or a bodyless partition.
type Node struct {
	Name   string
	Kind   NodeKind
	Claims ClaimSet
	Run    func(ctx *Context)

	indegree  int32
	remaining atomic.Int32
	state     atomic.Int32
	out       []int // indices into graph.nodes of dependent nodes
}

func (n *Node) State() WakeupState { return WakeupState(n.state.Load()) }

// graph is the static conflict+partition DAG built once at Builder.Finalize.
type graph struct {
	nodes []*Node
}

// systemSpec is the builder-time record of one scheduled system, before
// node indices and edges are resolved.
type systemSpec struct {
	desc     SystemDescriptor
	claims   ClaimSet
	unsend   bool
	before   []string
	after    []string
}

// buildGraph constructs the conflict+partition DAG from the declared
// systems and partition references, then runs cycle detection. Conflict
// edges are directed by declaration order (earlier -> later), so they are
// acyclic by construction; only partition before/after edges can introduce
// a genuine cycle.
func buildGraph(specs []systemSpec) (*graph, error) {
	g := &graph{}
	partitionIdx := make(map[string]int)

	partitionFor := func(name string) int {
		if i, ok := partitionIdx[name]; ok {
			return i
		}
		g.nodes = append(g.nodes, &Node{Name: name, Kind: NodePartition})
		i := len(g.nodes) - 1
		partitionIdx[name] = i
		return i
	}

	systemIdx := make([]int, len(specs))
	for i, s := range specs {
		kind := NodeSend
		if s.unsend {
			kind = NodeUnsend
		}
		g.nodes = append(g.nodes, &Node{Name: s.desc.Name, Kind: kind, Claims: s.claims, Run: s.desc.Run})
		systemIdx[i] = len(g.nodes) - 1
	}

	addEdge := func(from, to int) {
		g.nodes[from].out = append(g.nodes[from].out, to)
		g.nodes[to].indegree++
	}

	// Conflict edges: declaration order breaks ties deterministically.
	for i := 0; i < len(specs); i++ {
		for j := i + 1; j < len(specs); j++ {
			if specs[i].claims.conflictsAny(specs[j].claims) {
				addEdge(systemIdx[i], systemIdx[j])
			}
		}
	}

	// Partition edges.
	for i, s := range specs {
		for _, p := range s.before {
			addEdge(systemIdx[i], partitionFor(p))
		}
		for _, p := range s.after {
			addEdge(partitionFor(p), systemIdx[i])
		}
	}

	if path, ok := detectCycle(g); ok {
		return nil, CycleError{Path: path}
	}
	if pending, ok := validateReachable(g); !ok {
		return nil, SchedulerStarvedError{Pending: pending}
	}
	return g, nil
}

// validateReachable runs Kahn's algorithm over g to confirm every node is
// reachable from the zero-indegree frontier. A cycle-free graph always
// fully drains; this check exists as a belt-and-suspenders defensive pass
// at Finalize, catching at build time what would otherwise only surface as
// a stalled ready queue mid-tick.
func validateReachable(g *graph) ([]string, bool) {
	remaining := make([]int32, len(g.nodes))
	var queue []int
	for i, nd := range g.nodes {
		remaining[i] = nd.indegree
		if nd.indegree == 0 {
			queue = append(queue, i)
		}
	}
	processed := 0
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		processed++
		for _, j := range g.nodes[i].out {
			remaining[j]--
			if remaining[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	if processed == len(g.nodes) {
		return nil, true
	}
	var pending []string
	for i, r := range remaining {
		if r > 0 {
			pending = append(pending, g.nodes[i].Name)
		}
	}
	return pending, false
}

// detectCycle runs a 3-color DFS over the graph, returning the cycle as a
// sequence of node names if one exists.
func detectCycle(g *graph) ([]string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.nodes))
	var stack []int

	var visit func(i int) ([]string, bool)
	visit = func(i int) ([]string, bool) {
		color[i] = gray
		stack = append(stack, i)
		for _, j := range g.nodes[i].out {
			switch color[j] {
			case white:
				if path, found := visit(j); found {
					return path, true
				}
			case gray:
				// Found the back-edge; build the path from j's position in stack.
				start := 0
				for k, idx := range stack {
					if idx == j {
						start = k
						break
					}
				}
				names := make([]string, 0, len(stack)-start+1)
				for _, idx := range stack[start:] {
					names = append(names, fmt.Sprintf("%s", g.nodes[idx].Name))
				}
				names = append(names, g.nodes[j].Name)
				return names, true
			}
		}
		color[i] = black
		stack = stack[:len(stack)-1]
		return nil, false
	}

	for i := range g.nodes {
		if color[i] == white {
			if path, found := visit(i); found {
				return path, true
			}
		}
	}
	return nil, false
}
