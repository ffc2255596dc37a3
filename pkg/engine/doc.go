// Package engine captures live scene nodes as records and replays records
// into a scene.
//
// An [Engine] binds a [scene.Scene] to a [registry.Registry] of node
// handlers. It provides four operations:
//
//   - [Engine.Export] and [Engine.ExportNames] turn live nodes into records.
//   - [Engine.Load] and [Engine.LoadDocument] create or reuse nodes, then
//     apply connections, then payloads.
//   - [Engine.Merge] blends a record's skin weights into an existing node
//     without recreating it.
//   - [Engine.Decompose] recovers pose-space deltas from a sculpt.
//
// # Names
//
// Recorded names pass through a [Resolver] before any lookup, so a record
// can be loaded under a different namespace or naming scheme. The target
// node and both endpoints of every connection use the same rules.
//
// # Failure Policy
//
// Creation failures are fatal: the load stops and returns an error. Nodes
// created before the failure stay in the scene; the report lists them.
// Failed connections, attributes and weights are skipped, logged as
// warnings and counted in the report.
//
// # Usage
//
//	e := engine.New(s, nodes.NewRegistry(), logger)
//	doc, err := e.ExportNames(ctx, engine.ExportAll, "root_jnt", "bodyShape", "body_skin")
//	...
//	report, err := e.LoadDocument(ctx, doc, engine.LoadOptions{
//	    NamespaceMap: &engine.NamespaceMap{From: "", To: "char01"},
//	})
package engine
