package nodes

import (
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// ObjectSet handles object sets. Members are recorded by name and resolved
// on load; members that do not exist are reported and left out.
type ObjectSet struct{}

var _ registry.Handler = ObjectSet{}

// Create creates an empty set.
func (ObjectSet) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	return create(env, rec.Type, rec.Creation.SceneArgs(name))
}

// Export records the members and the remaining attributes.
func (ObjectSet) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	if parts.Creation {
		rec.Creation = record.NewCreation()
	}
	if !parts.Payload {
		return nil
	}
	var attrs []string
	for _, a := range env.Scene.ListAttrs(n) {
		if a != "members" {
			attrs = append(attrs, a)
		}
	}
	if len(attrs) > 0 {
		registry.ExportAttrs(env, n, rec, attrs...)
	}

	v, err := env.Scene.GetAttr(n, "members")
	if err != nil {
		return err
	}
	members, _ := scene.AsStrings(v)
	if members == nil {
		members = []string{}
	}
	rec.Set("members", members)
	return nil
}

// Load applies the attributes and the resolved members.
func (ObjectSet) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	registry.LoadAttrs(env, n, rec, "members")

	var recorded []string
	ok, err := rec.Decode("members", &recorded)
	if err != nil {
		env.Warn(n.Name(), "skipped members", err)
		return nil
	}
	if !ok {
		return nil
	}
	members := make([]string, 0, len(recorded))
	for _, m := range env.Names(recorded) {
		if !env.Scene.Exists(m) {
			env.Warn(n.Name(), "skipped missing member "+m, nil)
			continue
		}
		members = append(members, m)
	}
	if err := env.Scene.SetAttr(n, "members", members); err != nil {
		env.Warn(n.Name(), "skipped members", err)
	}
	return nil
}
