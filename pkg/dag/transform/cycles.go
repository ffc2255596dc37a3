package transform

import "github.com/matzehuels/rigstash/pkg/dag"

// BreakCycles removes the edges that close a cycle and returns them in
// the order they were found. The walk starts at the sources, then at any
// node not reached yet, and follows children in insertion order, so the
// same graph always loses the same edges.
func BreakCycles(g *dag.DAG) []dag.Edge {
	type frame struct {
		id   string
		next int
	}
	const (
		unseen = iota
		open
		closed
	)

	state := make(map[string]int, g.NodeCount())
	var back []dag.Edge
	walk := func(root string) {
		if state[root] != unseen {
			return
		}
		state[root] = open
		stack := []frame{{id: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.Children(top.id)
			if top.next == len(children) {
				state[top.id] = closed
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.next]
			top.next++
			switch state[child] {
			case unseen:
				state[child] = open
				stack = append(stack, frame{id: child})
			case open:
				back = append(back, dag.Edge{From: top.id, To: child})
			}
		}
	}

	for _, n := range g.Sources() {
		walk(n.ID)
	}
	for _, n := range g.Nodes() {
		walk(n.ID)
	}
	for _, e := range back {
		g.RemoveEdge(e.From, e.To)
	}
	return back
}
