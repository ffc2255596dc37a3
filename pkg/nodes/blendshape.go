package nodes

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// BlendShape handles blend shapes. The payload carries every target with
// its sparse deltas; target weights are "weight[i]" attributes.
type BlendShape struct{}

var (
	_ registry.Handler     = BlendShape{}
	_ registry.PreExporter = BlendShape{}
)

// PreExport toggles the envelope so the host materializes the target
// data, then restores it. A driven envelope is left alone.
func (BlendShape) PreExport(env *registry.Env, n scene.Node) (err error) {
	if registry.DrivenAttrs(env.Scene, n)["envelope"] {
		return nil
	}
	v, err := env.Scene.GetAttr(n, "envelope")
	if err != nil {
		return err
	}
	defer func() {
		if rerr := env.Scene.SetAttr(n, "envelope", v); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return env.Scene.SetAttr(n, "envelope", 0.0)
}

// Create creates the blend shape on its recorded bases.
func (BlendShape) Create(env *registry.Env, rec *record.Node, name string) (scene.Node, error) {
	if rec.Creation == nil || len(rec.Creation.Args) == 0 {
		return nil, errors.New(errors.ErrCodeMissingCreationData, "blend shape %q records no base geometry", rec.Name)
	}
	bases, err := ensureGeometry(env, rec, rec.Creation.ArgStrings())
	if err != nil {
		return nil, err
	}
	args := rec.Creation.SceneArgs(name)
	args.Positional = toAny(bases)
	return create(env, rec.Type, args)
}

// Export records bases, targets, the envelope and the target weights.
func (BlendShape) Export(env *registry.Env, n scene.Node, rec *record.Node, parts registry.Parts) error {
	if !parts.Creation && !parts.Payload {
		return nil
	}
	targets, err := blendTargets(env.Scene, n)
	if err != nil {
		return err
	}
	bases, err := exportObjectInfo(env, n, rec)
	if err != nil {
		return err
	}

	if parts.Creation {
		pairs := make([]any, len(targets))
		for i, t := range targets {
			pairs[i] = []any{t.Name, t.Index}
		}
		rec.Creation = record.NewCreation().Append(toAny(bases)...).Set("targets", pairs)
	}
	if parts.Payload {
		names := []string{"envelope"}
		for _, attr := range env.Scene.ListAttrs(n) {
			if strings.HasPrefix(attr, "weight[") {
				names = append(names, attr)
			}
		}
		registry.ExportAttrs(env, n, rec, names...)
		rec.Set("targets", targets)
	}
	return nil
}

// Load applies the targets, then the attributes.
func (BlendShape) Load(env *registry.Env, n scene.Node, rec *record.Node) error {
	var targets []scene.BlendTarget
	ok, err := rec.Decode("targets", &targets)
	switch {
	case err != nil:
		env.Warn(n.Name(), "skipped targets", err)
	case ok:
		if err := env.Scene.SetAttr(n, "inputTarget", targets); err != nil {
			env.Warn(n.Name(), "skipped targets", err)
		}
	}
	registry.LoadAttrs(env, n, rec, "inputTarget")
	return nil
}

// blendTargets reads the targets of a blend shape.
func blendTargets(s scene.Scene, bs scene.Node) ([]scene.BlendTarget, error) {
	v, err := s.GetAttr(bs, "inputTarget")
	if err != nil {
		return nil, err
	}
	if ts, ok := v.([]scene.BlendTarget); ok {
		return ts, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var ts []scene.BlendTarget
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s.inputTarget", bs.Name())
	}
	return ts, nil
}

// ApplyPoseDelta stores d as the full-weight shape of the target with the
// given index, creating the target when the blend shape has none there.
func ApplyPoseDelta(s scene.Scene, bs scene.Node, name string, index int, d *record.DeltaMap) error {
	if d == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no delta for target %d of %s", index, bs.Name())
	}
	if err := d.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "target %d of %s", index, bs.Name())
	}
	targets, err := blendTargets(s, bs)
	if err != nil {
		return err
	}

	i := slices.IndexFunc(targets, func(t scene.BlendTarget) bool { return t.Index == index })
	if i < 0 {
		if name == "" {
			return errors.New(errors.ErrCodeInvalidInput, "target %d of %s needs a name", index, bs.Name())
		}
		targets = append(targets, scene.BlendTarget{Name: name, Index: index})
		i = len(targets) - 1
	}

	item := scene.TargetItem{
		Index:      scene.FullWeightItem,
		Components: slices.Clone(d.Components),
		Points:     slices.Clone(d.Points),
	}
	t := &targets[i]
	if existing := t.Item(scene.FullWeightItem); existing != nil {
		*existing = item
	} else {
		t.Items = append(t.Items, item)
	}
	return s.SetAttr(bs, "inputTarget", targets)
}
