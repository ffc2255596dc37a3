package nodes

import (
	"fmt"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/influence"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// SkinAttrs are the skin cluster attributes recorded in the payload.
var SkinAttrs = []string{"envelope", "skinningMethod", "bindMethod", "dropoffRate", "normalizeWeights", "maxInfluences"}

// SkinCluster handles skin clusters. The payload carries the influence
// list and a weight matrix with one row per component and one column per
// recorded influence.
type SkinCluster struct{}

var (
	_ registry.Handler       = SkinCluster{}
	_ registry.IndexedLoader = SkinCluster{}
)

// Create binds the recorded geometry to the recorded influences that
// exist. When none exists a placeholder stands in for the first one; the
// rest are added when the payload is loaded.
func (SkinCluster) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	if rec.Creation == nil {
		return nil, errors.New(errors.ErrCodeMissingCreationData, "skin cluster %q has no creation data", rec.Name)
	}
	recorded := env.Names(rec.Creation.ArgStrings())
	if len(recorded) == 0 {
		return nil, errors.New(errors.ErrCodeMissingCreationData, "skin cluster %q records no influences", rec.Name)
	}
	geom, err := ensureGeometry(env, rec, rec.Creation.Strings("geometry"))
	if err != nil {
		return nil, err
	}

	var infs []string
	for _, inf := range recorded {
		if env.Scene.Exists(inf) {
			infs = append(infs, inf)
		}
	}
	if len(infs) == 0 {
		if _, err := influence.Placeholder(env.Scene, recorded[0]); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCreationFailed, err, "create %q", name)
		}
		env.Warn(name, "no recorded influence exists, bound to placeholder "+recorded[0], nil)
		infs = recorded[:1]
	}

	args := rec.Creation.SceneArgs(name)
	args.Positional = toAny(infs)
	if args.Named == nil {
		args.Named = make(map[string]any)
	}
	args.Named["geometry"] = geom
	return create(env, rec.Type, args)
}

// Export records influences, geometry, attributes and weights.
func (SkinCluster) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	if !parts.Creation && !parts.Payload {
		return nil
	}
	infs, err := env.Scene.ListInfluences(n)
	if err != nil {
		return err
	}
	geom, err := exportObjectInfo(env, n, rec)
	if err != nil {
		return err
	}

	if parts.Creation {
		names := make([]string, len(infs))
		for i, inf := range infs {
			names[i] = inf.Name
		}
		rec.Creation = record.NewCreation().
			Append(toAny(names)...).
			Set("geometry", geom).
			Set("toSelectedBones", true)
	}
	if parts.Payload {
		registry.ExportAttrs(env, n, rec, SkinAttrs...)
		weights, err := exportWeights(env.Scene, n, infs)
		if err != nil {
			return err
		}
		rec.Influences = record.NewInfluenceList(infs)
		rec.Weights = weights
	}
	return nil
}

func exportWeights(s scene.Scene, skin scene.Node, infs []scene.Influence) (record.WeightMatrix, error) {
	count, err := s.ComponentCount(skin)
	if err != nil {
		return nil, err
	}
	out := make(record.WeightMatrix, 0, count*len(infs))
	for c := range count {
		for _, inf := range infs {
			w, err := s.Weight(skin, c, inf.Index)
			if err != nil {
				return nil, fmt.Errorf("weight %d of %s: %w", c, inf.Name, err)
			}
			out = append(out, w)
		}
	}
	return out, nil
}

// Load applies the payload with the recorded influence indices.
func (h SkinCluster) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	return h.LoadIndexed(env, n, rec, nil)
}

// LoadIndexed applies the attributes and replaces the weights. Each
// recorded influence index is translated through m. Zero weights are not
// written; a weight the host rejects is reported and skipped.
func (SkinCluster) LoadIndexed(env *registry.Env, n scene.Node, rec *record.Node, m record.IndexMap) error {
	registry.LoadAttrs(env, n, rec)
	if rec.Influences == nil || len(rec.Weights) == 0 {
		return nil
	}

	numInf := rec.Influences.Len()
	comps, err := rec.Weights.Components(numInf)
	if err != nil {
		env.Warn(n.Name(), "skipped weights", err)
		return nil
	}
	live, err := env.Scene.ComponentCount(n)
	if err != nil {
		return err
	}
	if comps != live {
		env.Warn(n.Name(), fmt.Sprintf("recorded %d components, geometry has %d", comps, live), nil)
		comps = min(comps, live)
	}

	if err := env.Scene.ClearWeights(n); err != nil {
		return err
	}
	for c := range comps {
		for j, old := range rec.Influences.Indices {
			w := rec.Weights.At(c, j, numInf)
			if w == 0 {
				continue
			}
			if err := env.Scene.SetWeight(n, c, m.Lookup(old), w); err != nil {
				env.Warn(n.Name(), fmt.Sprintf("skipped weight %d of %s", c, rec.Influences.Names[j]), err)
			}
		}
	}
	return nil
}
