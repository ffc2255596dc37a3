package dag

import (
	"errors"
	"maps"
	"slices"
	"testing"
)

func TestAddNodeErrors(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("AddNode(empty) = %v, want %v", err, ErrInvalidNodeID)
	}
	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatalf("AddNode(a): %v", err)
	}
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("AddNode(dup) = %v, want %v", err, ErrDuplicateNodeID)
	}
	if err := g.EnsureNode("a"); err != nil {
		t.Errorf("EnsureNode(existing) = %v, want nil", err)
	}
}

func TestAddEdgeErrors(t *testing.T) {
	g := New()
	_ = g.AddNode(Node{ID: "a"})

	if err := g.AddEdge(Edge{From: "x", To: "a"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("AddEdge(unknown from) = %v", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "x"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("AddEdge(unknown to) = %v", err)
	}
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := New()
	_ = g.AddNode(Node{ID: "a"})
	_ = g.AddNode(Node{ID: "b"})
	_ = g.AddEdge(Edge{From: "a", To: "b"})
	_ = g.AddEdge(Edge{From: "a", To: "b"})

	if n := len(g.Edges()); n != 1 {
		t.Errorf("len(Edges()) = %d, want 1", n)
	}
	g.RemoveEdge("a", "b")
	if n := len(g.Edges()); n != 0 || g.InDegree("b") != 0 {
		t.Errorf("RemoveEdge left edges=%d indegree=%d", n, g.InDegree("b"))
	}
}

func TestTopoSort(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []string
		edges   [][2]string
		want    []string
		wantErr error
	}{
		{
			name:  "insertion order without edges",
			nodes: []string{"c", "a", "b"},
			want:  []string{"c", "a", "b"},
		},
		{
			name:  "dependency moves first",
			nodes: []string{"skin", "mesh", "jnt"},
			edges: [][2]string{{"mesh", "skin"}, {"jnt", "skin"}},
			want:  []string{"mesh", "jnt", "skin"},
		},
		{
			name:  "chain reversed",
			nodes: []string{"c", "b", "a"},
			edges: [][2]string{{"a", "b"}, {"b", "c"}},
			want:  []string{"a", "b", "c"},
		},
		{
			name:    "cycle",
			nodes:   []string{"a", "b"},
			edges:   [][2]string{{"a", "b"}, {"b", "a"}},
			wantErr: ErrGraphHasCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, id := range tt.nodes {
				_ = g.AddNode(Node{ID: id})
			}
			for _, e := range tt.edges {
				_ = g.AddEdge(Edge{From: e[0], To: e[1]})
			}
			got, err := g.TopoSort()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("TopoSort() error = %v, want %v", err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("TopoSort() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	g := New()
	_ = g.AddNode(Node{ID: "a"})
	_ = g.AddNode(Node{ID: "b"})
	_ = g.AddEdge(Edge{From: "a", To: "b"})
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	_ = g.AddEdge(Edge{From: "b", To: "a"})
	if err := g.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate() = %v, want %v", err, ErrGraphHasCycle)
	}
}

func TestSourcesAndRows(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		_ = g.AddNode(Node{ID: id})
	}
	_ = g.AddEdge(Edge{From: "a", To: "b"})
	g.SetRows(map[string]int{"b": 1, "c": 0})

	if got := NodeIDs(g.Sources()); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Sources() = %v", got)
	}
	rows := make(map[string]int)
	for _, n := range g.Nodes() {
		rows[n.ID] = n.Row
	}
	if want := map[string]int{"a": 0, "b": 1, "c": 0}; !maps.Equal(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}
