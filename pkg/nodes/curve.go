package nodes

import (
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// NurbsCurve handles NURBS curves such as control shapes. Creation records
// the base CVs with the degree, form and knots.
type NurbsCurve struct{}

var _ registry.Handler = NurbsCurve{}

// Create builds the curve from its recorded CVs.
func (NurbsCurve) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	if rec.Creation == nil || !rec.Creation.Has("cvs") {
		return nil, errors.New(errors.ErrCodeMissingCreationData, "curve %q has no cvs", rec.Name)
	}
	args := rec.Creation.SceneArgs(name)
	reparent(env, rec, &args)
	return create(env, rec.Type, args)
}

// Export records the curve geometry. Like a mesh, the payload carries the
// base points.
func (NurbsCurve) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	base, err := basePoints(env.Scene, n)
	if err != nil {
		return err
	}
	if parts.Creation {
		rec.Creation = record.NewCreation().Set("cvs", base)
		for _, attr := range []string{"degree", "form", "knots"} {
			v, err := env.Scene.GetAttr(n, attr)
			if err != nil {
				return err
			}
			rec.Creation.Set(attr, v)
		}
		if p := env.Scene.Parent(n); p != "" {
			rec.Creation.Set("parent", p)
		}
		if v, err := env.Scene.GetAttr(n, "intermediateObject"); err == nil {
			if b, _ := scene.AsBool(v); b {
				rec.Creation.Set("intermediate", true)
			}
		}
	}
	if parts.Payload {
		rec.Set("points", base)
	}
	return nil
}

// Load writes the recorded points the way [Mesh] does.
func (NurbsCurve) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	return Mesh{}.Load(env, n, rec)
}
