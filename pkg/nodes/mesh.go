package nodes

import (
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Mesh handles polygon meshes. Creation records the pre-deformation
// points and the faces, so a deformed mesh is rebuilt in its bind shape.
type Mesh struct{}

var _ registry.Handler = Mesh{}

// Create builds the mesh from its recorded geometry.
func (Mesh) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	if rec.Creation == nil || !rec.Creation.Has("vertex_positions") {
		return nil, errors.New(errors.ErrCodeMissingCreationData, "mesh %q has no vertex positions", rec.Name)
	}
	args := rec.Creation.SceneArgs(name)
	reparent(env, rec, &args)
	return create(env, rec.Type, args)
}

// Export records the geometry. The payload carries the base points again
// so they can be re-applied to an existing mesh.
func (Mesh) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	base, err := basePoints(env.Scene, n)
	if err != nil {
		return err
	}
	if parts.Creation {
		info, err := snapshotShape(env.Scene, n)
		if err != nil {
			return err
		}
		rec.Creation = record.NewCreation().
			Set("vertex_positions", info.Points).
			Set("faces", info.Faces)
		if info.Parent != "" {
			rec.Creation.Set("parent", info.Parent)
		}
		if info.Intermediate {
			rec.Creation.Set("intermediate", true)
		}
	}
	if parts.Payload {
		rec.Set("points", base)
	}
	return nil
}

// Load writes the recorded points. On a deformed mesh they go to the
// intermediate sibling. A point count mismatch is reported and skipped.
func (Mesh) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	var pts []scene.Vec3
	ok, err := rec.Decode("points", &pts)
	if err != nil {
		env.Warn(n.Name(), "skipped points", err)
		return nil
	}
	if !ok {
		return nil
	}

	target := n
	orig, err := env.Scene.IntermediateSibling(n)
	if err != nil {
		return err
	}
	if orig != nil {
		target = orig
	}
	if err := env.Scene.SetPoints(target, pts); err != nil {
		env.Warn(n.Name(), "skipped points", err)
	}
	return nil
}

// basePoints returns the pre-deformation points of a shape.
func basePoints(s scene.Scene, shape scene.Node) ([]scene.Vec3, error) {
	orig, err := s.IntermediateSibling(shape)
	if err != nil {
		return nil, err
	}
	if orig != nil {
		shape = orig
	}
	return s.EvaluatePoints(shape)
}
