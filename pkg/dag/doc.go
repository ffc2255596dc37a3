// Package dag provides a small directed graph keyed by scene node name.
//
// # Overview
//
// rigstash uses the graph in two places:
//
//   - Ordering record documents: an edge A→B means record A must be created
//     before record B (B names A as a parent, deformed geometry, influence
//     or creation argument). [DAG.TopoSort] and [transform.AssignLayers]
//     yield a creation-safe order.
//   - Guarding the in-memory scene against attribute connections that would
//     close a cycle ([DAG.Reachable]).
//
// # Basic Usage
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "L_arm_jnt"})
//	g.AddNode(dag.Node{ID: "skinCluster1"})
//	g.AddEdge(dag.Edge{From: "L_arm_jnt", To: "skinCluster1"})
//
//	order, err := g.TopoSort() // [L_arm_jnt skinCluster1]
//
// Iteration is always in insertion order, so results are deterministic.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use.
//
// [transform]: github.com/matzehuels/rigstash/pkg/dag/transform
package dag
