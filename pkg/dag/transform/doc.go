// Package transform provides graph transformations used to order scene
// records.
//
// # Overview
//
// A record document must list every node after the nodes it depends on.
// Documents assembled by hand or exported from several selections can
// contain dependencies in any order, and occasionally cycles (two nodes
// connected both ways). This package turns such a graph into an order:
//
//   - [BreakCycles] removes back edges so the graph becomes acyclic
//   - [AssignLayers] places each node one row below its deepest dependency
//   - [LayerOrder] combines both and returns IDs row by row
//
// # Determinism
//
// All functions iterate in insertion order, so the same input always
// produces the same order. Within a row the original position is kept.
package transform
