// Package pkg provides the core libraries for capturing rig nodes as
// records and rebuilding them in a scene.
//
// # Overview
//
// Rigstash walks live scene nodes, captures what is needed to recreate each
// one (creation arguments, connections, attributes, skin weights, deltas)
// and writes the result as a JSON record document. Loading the document
// replays it into another scene, optionally under a different naming
// scheme. The pkg directory is organized into these areas:
//
//  1. [scene] - The host scene interface and an in-memory implementation
//  2. [record] - Record and document types plus their JSON form
//  3. [registry] and [nodes] - Per-type handlers that export and load records
//  4. [engine] - Export, load, merge and decompose over a scene
//  5. [store] - Document persistence (file, Redis, MongoDB)
//
// # Architecture
//
// The typical data flow:
//
//	Live scene nodes
//	        ↓
//	  [engine] Export (handler per node type from [registry])
//	        ↓
//	  [record] Document (JSON)
//	        ↓
//	  [store] (optional)
//	        ↓
//	  [engine] Load / Merge into a target scene
//
// # Quick Start
//
// Export a rig and load it into another scene under a new namespace:
//
//	import (
//	    "github.com/matzehuels/rigstash/pkg/engine"
//	    "github.com/matzehuels/rigstash/pkg/nodes"
//	    "github.com/matzehuels/rigstash/pkg/scene/memory"
//	)
//
//	src := engine.New(srcScene, nodes.NewRegistry(), logger)
//	doc, _ := src.ExportNames(ctx, engine.ExportAll, "root_jnt", "bodyShape", "body_skin")
//
//	dst := engine.New(memory.New(), nodes.NewRegistry(), logger)
//	report, _ := dst.LoadDocument(ctx, doc, engine.LoadOptions{
//	    NamespaceMap: &engine.NamespaceMap{From: "", To: "char01"},
//	})
//
// # Main Packages
//
// [scene] - The narrow interface the engine drives: create, look up, connect,
// read and write attributes, skin weights and mesh points.
// [scene/memory] is a self-contained implementation with linear skinning,
// blend shapes and JSON snapshots, used by the CLI and the tests.
//
// [record] - Records are the unit of capture. A [record.Document] is an
// ordered list of records; its JSON form is the interchange format.
//
// [registry] - Maps node type tags to handlers, with capability fallbacks
// for types that have no handler of their own. The registry freezes on
// first lookup.
//
// [nodes] - Built-in handlers: transforms, joints, meshes, skin clusters,
// blend shapes, generic deformers, sets, animation curves and dependency
// nodes. Also weight pruning.
//
// [influence] - Resolves recorded influence lists against a live deformer.
//
// [delta] - Pose-space decomposition of sculpted shapes.
//
// [dag] and [dag/transform] - Dependency graphs between records, cycle
// breaking and row layering for creation order and diagrams.
//
// [render/nodelink] - Dependency diagrams of documents using Graphviz.
//
// [store] - Keyed document storage with file, Redis, MongoDB and null
// backends plus key scoping.
//
// [config] - TOML/YAML configuration with environment overrides.
//
// [observability] - Hooks for engine and HTTP metrics, with a Prometheus
// implementation in [observability/prom].
//
// [errors] - Coded errors shared by all packages.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/engine/...    # Specific package
//	go test -run Example        # Examples only
//
// [scene]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/scene
// [scene/memory]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/scene/memory
// [record]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/record
// [registry]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/registry
// [nodes]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/nodes
// [engine]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/engine
// [influence]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/influence
// [delta]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/delta
// [dag]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/dag/transform
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/render/nodelink
// [store]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/observability/prom
// [errors]: https://pkg.go.dev/github.com/matzehuels/rigstash/pkg/errors
package pkg
