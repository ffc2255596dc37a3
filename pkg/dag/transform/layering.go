package transform

import (
	"slices"

	"github.com/matzehuels/rigstash/pkg/dag"
)

// AssignLayers assigns every node a row equal to the length of the longest
// dependency chain leading to it.
//
// AssignLayers uses a longest-path algorithm via topological sort (Kahn's
// algorithm). Each node is placed at one plus the maximum row of any of its
// parents, so:
//   - Nodes without dependencies are at row 0
//   - Every dependency is strictly above its dependents
//
// Existing row assignments are overwritten.
//
// # Cycles
//
// AssignLayers assumes the graph is acyclic. Nodes on a cycle never reach
// zero in-degree and keep row 0. Run [BreakCycles] first.
//
// # Performance
//
// Time complexity is O(V + E).
func AssignLayers(g *dag.DAG) {
	nodes := g.Nodes()
	inDegree := make(map[string]int, len(nodes))
	rows := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))

	for _, n := range nodes {
		degree := g.InDegree(n.ID)
		inDegree[n.ID] = degree
		rows[n.ID] = 0
		if degree == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, child := range g.Children(curr) {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	g.SetRows(rows)
}

// LayerOrder breaks cycles, assigns layers and returns node IDs ordered by
// row, keeping insertion order within a row. Every remaining edge points
// from an earlier ID to a later one. The removed back edges are returned
// so callers can report dependencies that could not be honoured.
func LayerOrder(g *dag.DAG) ([]string, []dag.Edge) {
	removed := BreakCycles(g)
	AssignLayers(g)

	nodes := g.Nodes()
	pos := dag.PosMap(dag.NodeIDs(nodes))
	slices.SortStableFunc(nodes, func(a, b *dag.Node) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return pos[a.ID] - pos[b.ID]
	})
	return dag.NodeIDs(nodes), removed
}
