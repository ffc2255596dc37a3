// Package nodes provides the built-in handlers for the node kinds rigstash
// can capture and rebuild.
//
// Each handler implements [registry.Handler] for a family of type tags.
// [Register] installs all of them on a registry; [NewRegistry] returns a
// registry that already has them:
//
//	reg := nodes.NewRegistry()
//	h, err := reg.Resolve("skinCluster", s.TypeCaps("skinCluster"))
//
// # Records
//
// Handlers split a node into creation data (what the host needs to create
// the node again), connections (exported by the engine) and a payload:
//
//   - [Transform]: creation carries the DAG parent.
//   - [Mesh]: creation carries the base points and faces.
//   - [NurbsCurve]: creation carries the base CVs with degree, form and
//     knots.
//   - [GeometryFilter]: creation lists the deformed geometry. The payload
//     snapshots the pre-deformation geometry under "out_object_info" so the
//     deformer can be rebuilt when the geometry no longer exists.
//   - [SkinCluster]: creation lists the influences. The payload carries the
//     influence list and the weight matrix.
//   - [BlendShape]: creation lists the bases and targets. The payload carries
//     the target deltas.
//   - [AnimCurve]: the payload carries the keys.
//   - [ObjectSet]: the payload carries the members.
//   - [Dependency]: every other node; the payload carries its attributes.
//
// # Maintenance
//
// [PruneWeights] removes insignificant skin weights and unused influences.
// [ApplyPoseDelta] writes a decomposed pose-space delta to a blend-shape
// target.
package nodes
