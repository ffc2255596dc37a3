// Package record defines the portable record model captured from a live
// scene and replayed into one.
//
// # Records
//
// One [Node] record describes exactly one scene node and is split into
// three tiers that are applied in order on load:
//
//   - [Creation]: arguments sufficient to recreate the node
//   - [Connection]: incoming attribute wires, applied once both ends exist
//   - [Payload]: attribute values and type-specific data (skin weights,
//     blend-shape deltas, animation keys), interpreted only by the handler
//     registered for the record's type
//
// # Wire Format
//
// Records serialize to JSON with stable field names:
//
//	{
//	  "nodes": [
//	    {
//	      "type": "skinCluster",
//	      "name": "body_skin",
//	      "creation": {"_args": ["root_jnt", "spine_jnt"], "geometry": ["bodyShape"]},
//	      "connections": [{"src_node": "...", "src_attr": "...", "dst_node": "...", "dst_attr": "..."}],
//	      "attributes": {"skinningMethod": 0},
//	      "additional": {"out_object_info": {}},
//	      "influences": {"names": ["root_jnt", "spine_jnt"], "indices": [0, 1]},
//	      "weights": [1, 0, 0.5, 0.5]
//	    }
//	  ]
//	}
//
// A [Document] lists records in creation-safe order: a record naming
// another record as a creation argument appears after it.
//
// Common operations:
//
//	doc, _ := record.ReadFile("rig.json")   // File → Document
//	record.WriteFile(doc, "rig.json")        // Document → File (atomic)
//	data, _ := record.Marshal(doc)           // Document → []byte
//
// # Weights and Deltas
//
// [WeightMatrix] is flat and row-major by component; column j belongs to
// the j-th entry of the record's [InfluenceList]. [IndexMap] rewrites
// recorded influence indices to live ones for the duration of one load.
// [DeltaMap] is sparse: vertices outside its component mask carry the zero
// delta.
package record
