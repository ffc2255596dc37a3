package nodes

import (
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// ObjectInfoKey is the additional-data key holding the snapshots of a
// deformer's geometry.
const ObjectInfoKey = "out_object_info"

// ObjectInfo is a snapshot of a deformed shape before deformation.
type ObjectInfo struct {
	Name         string       `json:"name"`
	Parent       string       `json:"parent,omitempty"`
	Points       []scene.Vec3 `json:"points"`
	Faces        [][]int      `json:"faces"`
	Intermediate bool         `json:"intermediate,omitempty"`
}

// snapshotShape captures the pre-deformation geometry of a shape.
func snapshotShape(s scene.Scene, shape scene.Node) (ObjectInfo, error) {
	pts, err := basePoints(s, shape)
	if err != nil {
		return ObjectInfo{}, err
	}
	faces, err := s.Faces(shape)
	if err != nil {
		return ObjectInfo{}, err
	}
	info := ObjectInfo{
		Name:   shape.Name(),
		Parent: s.Parent(shape),
		Points: pts,
		Faces:  faces,
	}
	if v, err := s.GetAttr(shape, "intermediateObject"); err == nil {
		info.Intermediate, _ = scene.AsBool(v)
	}
	return info, nil
}

// exportObjectInfo records snapshots of every shape driven by deformer.
func exportObjectInfo(env *registry.Env, deformer scene.Node, rec *record.Node) ([]string, error) {
	shapes, err := env.Scene.DeformedGeometry(deformer)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(shapes))
	infos := make([]ObjectInfo, 0, len(shapes))
	for _, shp := range shapes {
		info, err := snapshotShape(env.Scene, shp)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "snapshot %s", shp.Name())
		}
		names = append(names, shp.Name())
		infos = append(infos, info)
	}
	rec.Set(ObjectInfoKey, infos)
	return names, nil
}

// ensureGeometry resolves the recorded geometry names. Shapes that no
// longer exist are rebuilt from the recorded snapshots; without a snapshot
// creation fails.
func ensureGeometry(env *registry.Env, rec *record.Node, recorded []string) ([]string, error) {
	var infos []ObjectInfo
	if _, err := rec.Decode(ObjectInfoKey, &infos); err != nil {
		return nil, err
	}
	byName := make(map[string]ObjectInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	out := make([]string, 0, len(recorded))
	for _, g := range recorded {
		name := env.Name(g)
		if env.Scene.Exists(name) {
			out = append(out, name)
			continue
		}
		info, ok := byName[g]
		if !ok {
			return nil, errors.New(errors.ErrCodeCreationFailed, "%s: geometry %q does not exist and was not recorded", rec.Name, name)
		}
		args := scene.Args{
			Name: name,
			Named: map[string]any{
				"vertex_positions": info.Points,
				"faces":            info.Faces,
			},
		}
		if p := env.Name(info.Parent); p != "" && env.Scene.Exists(p) {
			args.Named["parent"] = p
		}
		if _, err := create(env, "mesh", args); err != nil {
			return nil, err
		}
		env.Warn(rec.Name, "rebuilt missing geometry "+name, nil)
		out = append(out, name)
	}
	return out, nil
}

// GeometryFilter handles deformers whose only creation data is the
// geometry they deform: clusters, lattices, wraps and unknown deformers.
type GeometryFilter struct{}

var _ registry.Handler = GeometryFilter{}

// Create creates the deformer on its recorded geometry, rebuilding the
// geometry first when it is missing.
func (GeometryFilter) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	if rec.Creation == nil || len(rec.Creation.Args) == 0 {
		return nil, errors.New(errors.ErrCodeMissingCreationData, "%s %q records no geometry", rec.Type, rec.Name)
	}
	geom, err := ensureGeometry(env, rec, rec.Creation.ArgStrings())
	if err != nil {
		return nil, err
	}
	args := rec.Creation.SceneArgs(name)
	args.Positional = toAny(geom)
	return create(env, rec.Type, args)
}

// Export records the geometry and the deformer's attributes. The geometry
// snapshots go with either tier.
func (GeometryFilter) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	if !parts.Creation && !parts.Payload {
		return nil
	}
	names, err := exportObjectInfo(env, n, rec)
	if err != nil {
		return err
	}
	if parts.Creation {
		rec.Creation = record.NewCreation().Append(toAny(names)...)
	}
	if parts.Payload {
		registry.ExportAttrs(env, n, rec)
	}
	return nil
}

// Load applies the recorded attributes.
func (GeometryFilter) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	registry.LoadAttrs(env, n, rec)
	return nil
}

func toAny[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
