// Package registry maps node type tags to the handlers that create, export
// and load them.
//
// # Handlers
//
// A [Handler] implements the three record operations for one family of node
// types. Handlers are plain values registered under a tag; adding a node
// kind means registering another table entry:
//
//	r := registry.New()
//	r.MustRegister("skinCluster", nodes.SkinCluster{})
//
// Two optional extensions are discovered by type assertion:
//
//   - [PreExporter]: a force-evaluate step run before payload export
//   - [IndexedLoader]: payload loading that takes an influence [record.IndexMap]
//
// # Resolution
//
// [Registry.Resolve] looks up the exact tag first. When the tag is not
// registered it falls back by capability, most specific first:
//
//	transform-like  -> "transform"
//	deformer-like   -> "geometryFilter"
//	any node        -> "dependencyNode"
//
// A tag the host does not know either (zero capabilities) fails with
// UNKNOWN_TYPE.
//
// # Lifecycle
//
// Registration is allowed only until the first Resolve. From then on the
// registry is read-only and safe for concurrent use.
package registry
