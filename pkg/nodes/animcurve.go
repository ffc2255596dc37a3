package nodes

import (
	"cmp"
	"slices"

	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Default tangent type of keys recorded without one.
const defaultTangent = "auto"

// curveAttrs hold the keys of a curve. They are recorded as [Key] values,
// not as attributes.
var curveAttrs = []string{"keyTimes", "keyValues", "inTangentTypes", "outTangentTypes", "inAngles", "outAngles"}

// Key is one keyframe of an animation curve.
type Key struct {
	Time       float64 `json:"time"`
	Value      float64 `json:"value"`
	InTangent  string  `json:"in_tangent"`
	OutTangent string  `json:"out_tangent"`
	InAngle    float64 `json:"in_angle"`
	OutAngle   float64 `json:"out_angle"`
}

// AnimCurve handles animation curves. Loading replaces the live keys when
// Replace is set and merges into them otherwise: a recorded key replaces
// the live key at the same time and other live keys are kept. A record may
// override Replace with a boolean "replace" entry.
type AnimCurve struct {
	Replace bool
}

var _ registry.Handler = AnimCurve{}

// Create creates an empty curve.
func (AnimCurve) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	return create(env, rec.Type, rec.Creation.SceneArgs(name))
}

// Export records the infinity modes and the keys.
func (AnimCurve) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	if parts.Creation {
		rec.Creation = record.NewCreation()
	}
	if !parts.Payload {
		return nil
	}
	registry.ExportAttrs(env, n, rec, "preInfinity", "postInfinity")
	keys, err := ReadKeys(env.Scene, n)
	if err != nil {
		return err
	}
	rec.Set("keys", keys)
	return nil
}

// Load applies the infinity modes and the keys.
func (h AnimCurve) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	registry.LoadAttrs(env, n, rec, curveAttrs...)

	replace := h.Replace
	if _, err := rec.Decode("replace", &replace); err != nil {
		env.Warn(n.Name(), "ignored replace flag", err)
		replace = h.Replace
	}
	var keys []Key
	ok, err := rec.Decode("keys", &keys)
	if err != nil {
		env.Warn(n.Name(), "skipped keys", err)
		return nil
	}
	if !ok {
		return nil
	}

	if !replace {
		live, err := ReadKeys(env.Scene, n)
		if err != nil {
			return err
		}
		keys = mergeKeys(live, keys)
	}
	if err := WriteKeys(env.Scene, n, keys); err != nil {
		env.Warn(n.Name(), "skipped keys", err)
	}
	return nil
}

func mergeKeys(live, recorded []Key) []Key {
	out := slices.Clone(recorded)
	for _, k := range live {
		if !slices.ContainsFunc(recorded, func(r Key) bool { return r.Time == k.Time }) {
			out = append(out, k)
		}
	}
	return out
}

// ReadKeys returns the keys of a curve in time order.
func ReadKeys(s scene.Scene, curve scene.Node) ([]Key, error) {
	lists := make(map[string]any, len(curveAttrs))
	for _, attr := range curveAttrs {
		v, err := s.GetAttr(curve, attr)
		if err != nil {
			return nil, err
		}
		lists[attr] = v
	}
	times, _ := scene.AsFloats(lists["keyTimes"])
	values, _ := scene.AsFloats(lists["keyValues"])
	itt, _ := scene.AsStrings(lists["inTangentTypes"])
	ott, _ := scene.AsStrings(lists["outTangentTypes"])
	ia, _ := scene.AsFloats(lists["inAngles"])
	oa, _ := scene.AsFloats(lists["outAngles"])

	keys := make([]Key, len(times))
	for i, t := range times {
		keys[i] = Key{
			Time:       t,
			Value:      at(values, i, 0),
			InTangent:  at(itt, i, defaultTangent),
			OutTangent: at(ott, i, defaultTangent),
			InAngle:    at(ia, i, 0),
			OutAngle:   at(oa, i, 0),
		}
	}
	slices.SortStableFunc(keys, func(a, b Key) int { return cmp.Compare(a.Time, b.Time) })
	return keys, nil
}

// WriteKeys replaces the keys of a curve. Keys are written in time order.
func WriteKeys(s scene.Scene, curve scene.Node, keys []Key) error {
	keys = slices.Clone(keys)
	slices.SortStableFunc(keys, func(a, b Key) int { return cmp.Compare(a.Time, b.Time) })

	n := len(keys)
	var (
		times, values = make([]float64, n), make([]float64, n)
		itt, ott      = make([]string, n), make([]string, n)
		ia, oa        = make([]float64, n), make([]float64, n)
	)
	for i, k := range keys {
		times[i], values[i] = k.Time, k.Value
		itt[i], ott[i] = cmp.Or(k.InTangent, defaultTangent), cmp.Or(k.OutTangent, defaultTangent)
		ia[i], oa[i] = k.InAngle, k.OutAngle
	}
	for attr, v := range map[string]any{
		"keyTimes":        times,
		"keyValues":       values,
		"inTangentTypes":  itt,
		"outTangentTypes": ott,
		"inAngles":        ia,
		"outAngles":       oa,
	} {
		if err := s.SetAttr(curve, attr, v); err != nil {
			return err
		}
	}
	return nil
}

func at[T any](s []T, i int, def T) T {
	if i < len(s) {
		return s[i]
	}
	return def
}
