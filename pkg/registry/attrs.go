package registry

import (
	"slices"

	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// DrivenAttrs returns the attributes of n that are connection destinations.
func DrivenAttrs(s scene.Scene, n scene.Node) map[string]bool {
	out := make(map[string]bool)
	for _, c := range s.ListConnections(n) {
		out[c.DstAttr] = true
	}
	return out
}

// ExportAttrs records attribute values of n into rec. With no names every
// attribute is exported. Attributes driven by a connection are skipped:
// their value comes from the connection. Names n does not have are
// skipped silently.
func ExportAttrs(env *Env, n scene.Node, rec *record.Node, names ...string) {
	if len(names) == 0 {
		names = env.Scene.ListAttrs(n)
	}
	driven := DrivenAttrs(env.Scene, n)
	for _, attr := range names {
		if driven[attr] {
			continue
		}
		v, err := env.Scene.GetAttr(n, attr)
		if err != nil {
			continue
		}
		rec.SetAttr(attr, v)
	}
}

// LoadAttrs applies the recorded attribute values of rec to n in sorted
// order, skipping the named attributes. Each failure is a warning.
func LoadAttrs(env *Env, n scene.Node, rec *record.Node, skip ...string) int {
	applied := 0
	for _, attr := range rec.AttrNames() {
		if slices.Contains(skip, attr) {
			continue
		}
		if err := env.Scene.SetAttr(n, attr, rec.Attributes[attr]); err != nil {
			env.Warn(n.Name(), "skipped attribute "+attr, err)
			continue
		}
		applied++
	}
	return applied
}
