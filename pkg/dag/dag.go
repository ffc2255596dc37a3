package dag

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidEdgeEndpoint is returned by [DAG.Validate] when an edge
	// references a node that doesn't exist.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrGraphHasCycle is returned by [DAG.Validate] and [DAG.TopoSort] when
	// a cycle is detected. Cycles are detected using depth-first search with
	// white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or edges.
// Metadata maps are never nil after AddNode/AddEdge.
type Metadata map[string]any

// Node is a vertex of the graph. Row is the layer assigned by
// [transform.AssignLayers]; it is zero until layers are assigned.
type Node struct {
	ID   string   // Unique identifier (a scene node name)
	Row  int      // Layer: 0 for nodes without dependencies
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge is a directed dependency: From must exist before To.
type Edge struct {
	From string   // Dependency
	To   string   // Dependent
	Meta Metadata // Arbitrary key-value metadata (never nil after AddEdge)
}

// DAG is a directed graph of named nodes used to order scene records and
// to reject connections that would close a cycle.
//
// Iteration order is insertion order everywhere, so every result derived
// from a DAG is deterministic. The zero value is not usable; use New.
// DAG is not safe for concurrent use without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	outgoing map[string][]string // nodeID -> dependents
	incoming map[string][]string // nodeID -> dependencies
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the node ID is empty, or ErrDuplicateNodeID
// if a node with the same ID already exists.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	d.order = append(d.order, n.ID)
	return nil
}

// EnsureNode adds a node with the given ID unless it already exists.
func (d *DAG) EnsureNode(id string) error {
	if _, ok := d.nodes[id]; ok {
		return nil
	}
	return d.AddNode(Node{ID: id})
}

// SetRows updates the row assignments for nodes. Nodes not present in the
// rows map retain their current row.
func (d *DAG) SetRows(rows map[string]int) {
	for id, row := range rows {
		if n, ok := d.nodes[id]; ok {
			n.Row = row
		}
	}
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode if the From node doesn't exist, or
// ErrUnknownTargetNode if the To node doesn't exist. Duplicate edges are
// ignored.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.outgoing[e.From], e.To) {
		return nil
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// RemoveEdge removes the edge from→to if it exists.
func (d *DAG) RemoveEdge(from, to string) {
	d.edges = slices.DeleteFunc(d.edges, func(e Edge) bool { return e.From == from && e.To == to })
	d.outgoing[from] = slices.DeleteFunc(d.outgoing[from], func(s string) bool { return s == to })
	d.incoming[to] = slices.DeleteFunc(d.incoming[to], func(s string) bool { return s == from })
}

// Nodes returns all nodes in insertion order. The returned slice contains
// pointers to the actual node structs, so modifications affect the graph.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.order))
	for _, id := range d.order {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// Children returns the IDs of nodes that depend on id.
// The returned slice should not be modified.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// InDegree returns the number of incoming edges to the node.
func (d *DAG) InDegree(id string) int { return len(d.incoming[id]) }

// Node returns the node with the given ID and true, or nil and false if not found.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Sources returns nodes with no incoming edges, in insertion order.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, id := range d.order {
		if len(d.incoming[id]) == 0 {
			sources = append(sources, d.nodes[id])
		}
	}
	return sources
}

// Validate checks graph integrity and returns nil if valid.
// Returns ErrInvalidEdgeEndpoint if an edge references a missing node or
// ErrGraphHasCycle if a cycle is detected. Runs in O(N+E).
func (d *DAG) Validate() error {
	for _, e := range d.edges {
		_, okS := d.nodes[e.From]
		_, okD := d.nodes[e.To]
		if !okS || !okD {
			return ErrInvalidEdgeEndpoint
		}
	}
	return d.detectCycles()
}

// Reachable reports whether to can be reached from from by following edges.
func (d *DAG) Reachable(from, to string) bool {
	seen := make(map[string]bool)
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, d.outgoing[id]...)
	}
	return false
}

// TopoSort returns node IDs so that every edge points forward. Ties are
// broken by insertion order. Returns ErrGraphHasCycle when no such order
// exists.
func (d *DAG) TopoSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for _, id := range d.order {
		inDegree[id] = len(d.incoming[id])
	}

	pos := make(map[string]int, len(d.order))
	for i, id := range d.order {
		pos[id] = i
	}

	var ready []string
	for _, id := range d.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]string, 0, len(d.order))
	for len(ready) > 0 {
		curr := ready[0]
		ready = ready[1:]
		out = append(out, curr)
		for _, child := range d.outgoing[curr] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, child)
				slices.SortStableFunc(ready, func(a, b string) int { return pos[a] - pos[b] })
			}
		}
	}

	if len(out) != len(d.order) {
		return nil, ErrGraphHasCycle
	}
	return out, nil
}

func (d *DAG) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for _, id := range d.order {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// PosMap creates a position lookup map from a slice of node IDs.
func PosMap(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

// NodeIDs extracts the ID from each node in a slice.
func NodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
