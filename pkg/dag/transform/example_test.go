package transform_test

import (
	"fmt"

	"github.com/matzehuels/rigstash/pkg/dag"
	"github.com/matzehuels/rigstash/pkg/dag/transform"
)

func ExampleLayerOrder() {
	// Records as they appear in a hand-edited document.
	g := dag.New()
	for _, id := range []string{"skinCluster1", "body_geo", "spine_jnt", "root_jnt"} {
		_ = g.AddNode(dag.Node{ID: id})
	}
	_ = g.AddEdge(dag.Edge{From: "root_jnt", To: "spine_jnt"})
	_ = g.AddEdge(dag.Edge{From: "spine_jnt", To: "skinCluster1"})
	_ = g.AddEdge(dag.Edge{From: "body_geo", To: "skinCluster1"})

	order, removed := transform.LayerOrder(g)
	fmt.Println(order)
	fmt.Println("removed:", len(removed))
	// Output:
	// [body_geo root_jnt spine_jnt skinCluster1]
	// removed: 0
}

func ExampleAssignLayers() {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "a"})
	_ = g.AddNode(dag.Node{ID: "b"})
	_ = g.AddNode(dag.Node{ID: "c"})
	_ = g.AddEdge(dag.Edge{From: "a", To: "b"})
	_ = g.AddEdge(dag.Edge{From: "b", To: "c"})
	_ = g.AddEdge(dag.Edge{From: "a", To: "c"})

	transform.AssignLayers(g)
	for _, n := range g.Nodes() {
		fmt.Println(n.ID, n.Row)
	}
	// Output:
	// a 0
	// b 1
	// c 2
}
