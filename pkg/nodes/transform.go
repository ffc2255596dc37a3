package nodes

import (
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Transform handles transforms, joints and every other transform-like
// type. Creation records the DAG parent.
type Transform struct{}

var _ registry.Handler = Transform{}

// Create creates the transform under its recorded parent. A parent that no
// longer exists is reported and the node is created at the root.
func (Transform) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	args := rec.Creation.SceneArgs(name)
	reparent(env, rec, &args)
	return create(env, rec.Type, args)
}

// Export records the parent and the attributes.
func (Transform) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	if parts.Creation {
		rec.Creation = record.NewCreation()
		if p := env.Scene.Parent(n); p != "" {
			rec.Creation.Set("parent", p)
		}
	}
	if parts.Payload {
		registry.ExportAttrs(env, n, rec)
	}
	return nil
}

// Load applies the recorded attributes.
func (Transform) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	registry.LoadAttrs(env, n, rec)
	return nil
}

// reparent resolves the recorded parent in args. A missing parent is
// dropped with a warning.
func reparent(env *registry.Env, rec *record.Node, args *scene.Args) {
	recorded := rec.Creation.String("parent")
	if recorded == "" {
		return
	}
	parent := env.Name(recorded)
	if !env.Scene.Exists(parent) {
		env.Warn(args.Name, "parent "+parent+" does not exist, creating at the root", nil)
		delete(args.Named, "parent")
		return
	}
	args.Named["parent"] = parent
}
