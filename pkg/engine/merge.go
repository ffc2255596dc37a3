package engine

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/influence"
	"github.com/matzehuels/rigstash/pkg/observability"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/registry"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// MergeOptions controls Merge.
type MergeOptions struct {
	// Filter rejects recorded influences by resolved name. Rejected
	// influences are not added to the live deformer and none of their
	// weights are written, even when the deformer already has them.
	Filter func(name string) bool
	// Normalize keeps every touched component summing to 1; see Normalizer.
	Normalize bool
	// WeightThreshold skips recorded weights below it. Recorded zeros are
	// written when the threshold is 0.
	WeightThreshold float64

	NameMap      map[string]string
	NamespaceMap *NamespaceMap
}

// ValidateAndSetDefaults checks the options.
func (o *MergeOptions) ValidateAndSetDefaults() error {
	if o.WeightThreshold < 0 || o.WeightThreshold >= 1 {
		return errors.New(errors.ErrCodeInvalidInput, "weight threshold %v outside [0, 1)", o.WeightThreshold)
	}
	return nil
}

// MergeReport describes a merge.
type MergeReport struct {
	Node string
	// Written counts weights assigned.
	Written int
	// Skipped counts nonzero weights with no live influence to land on.
	Skipped int
	// Filtered counts nonzero weights of influences rejected by Filter.
	Filtered int
	// BelowThreshold counts nonzero weights under MergeOptions.WeightThreshold.
	BelowThreshold int
	// Added lists influences added to the deformer.
	Added    []string
	Warnings []registry.Warning
}

// Normalizer writes the merged weights of one component.
//
// written maps live influence indices to the recorded weights landing on
// them. Implementations must be idempotent: normalizing the same written
// set twice leaves the component unchanged the second time.
type Normalizer interface {
	Normalize(s scene.Scene, skin scene.Node, component int, written map[int]float64) error
}

// ProportionalNormalizer holds the written weights fixed and rescales the
// other influences of the component so it sums to 1. Written weights
// summing to 1 or more are scaled to sum to 1 and the others are zeroed.
// A component with no other weight is left short of 1.
type ProportionalNormalizer struct{}

func (ProportionalNormalizer) Normalize(s scene.Scene, skin scene.Node, component int, written map[int]float64) error {
	infs, err := s.ListInfluences(skin)
	if err != nil {
		return err
	}

	var held float64
	for _, w := range written {
		held += clamp01(w)
	}

	rest := make(map[int]float64)
	var restSum float64
	for _, inf := range infs {
		if _, ok := written[inf.Index]; ok {
			continue
		}
		w, err := s.Weight(skin, component, inf.Index)
		if err != nil {
			return err
		}
		if w != 0 {
			rest[inf.Index] = w
			restSum += w
		}
	}

	heldScale, restScale := 1.0, 0.0
	switch {
	case held >= 1:
		heldScale = 1 / held
	case restSum > 0:
		restScale = (1 - held) / restSum
	default:
		restScale = 1
	}

	for _, idx := range slices.Sorted(maps.Keys(written)) {
		if err := s.SetWeight(skin, component, idx, clamp01(written[idx])*heldScale); err != nil {
			return err
		}
	}
	for _, idx := range slices.Sorted(maps.Keys(rest)) {
		if err := s.SetWeight(skin, component, idx, rest[idx]*restScale); err != nil {
			return err
		}
	}
	return nil
}

func clamp01(w float64) float64 {
	return min(max(w, 0), 1)
}

// Merge folds a record into an existing node without recreating it.
//
// For skin-like records the recorded weights are assigned onto the live
// deformer: recorded influences missing from it are added when their
// objects exist and Filter accepts them, and live influences absent from
// the record are kept. Other records merge through their handler's
// payload load. Merging the same record twice leaves the scene as after
// the first merge.
func (e *Engine) Merge(ctx context.Context, rec *record.Node, opts MergeOptions) (report *MergeReport, err error) {
	start := time.Now()
	defer func() {
		var written, skipped int
		node := ""
		if report != nil {
			node, written, skipped = report.Node, report.Written, report.Skipped+report.Filtered+report.BelowThreshold
		}
		observability.Engine().OnMerge(ctx, node, written, skipped, time.Since(start), err)
	}()

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	r := NewResolver(opts.NameMap, opts.NamespaceMap)
	env := e.env(r)
	name := r.Resolve(rec.Name)
	n, err := e.Scene.Lookup(name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "merge %s", name)
	}
	h, err := e.handler(n)
	if err != nil {
		return nil, err
	}

	report = &MergeReport{Node: name}
	if rec.Influences == nil || !e.Scene.Caps(n).Has(scene.CapInfluenced) {
		if err := h.Load(env, n, rec); err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "merge %s", name)
		}
		report.Warnings = env.Warnings
		return report, nil
	}

	if err := e.mergeWeights(env, n, rec, opts, r, report); err != nil {
		return nil, err
	}
	report.Warnings = env.Warnings
	e.Logger.Info("merged weights",
		"node", name,
		"written", report.Written,
		"skipped", report.Skipped,
		"below_threshold", report.BelowThreshold,
		"duration", time.Since(start))
	return report, nil
}

func (e *Engine) mergeWeights(env *registry.Env, skin scene.Node, rec *record.Node, opts MergeOptions, r *Resolver, report *MergeReport) error {
	s := e.Scene
	numInf := rec.Influences.Len()
	comps, err := rec.Weights.Components(numInf)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRecord, err, "merge %s", skin.Name())
	}

	m, res, err := influence.Remap(s, skin, rec.Influences, influence.Options{
		Resolve:        r.Resolve,
		Filter:         opts.Filter,
		NoPlaceholders: true,
		KeepExtra:      true,
	})
	if err != nil {
		return err
	}
	report.Added = res.Added
	for _, name := range res.Skipped {
		env.Warn(skin.Name(), "skipped influence "+name, nil)
	}

	live, err := s.ComponentCount(skin)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "component count of %s", skin.Name())
	}
	if comps != live {
		env.Warn(skin.Name(), "component count mismatch, merging the common range", nil)
		comps = min(comps, live)
	}

	normalizer := e.Normalizer
	if normalizer == nil {
		normalizer = ProportionalNormalizer{}
	}

	rejected := make([]bool, numInf)
	if opts.Filter != nil {
		for j, name := range rec.Influences.Names {
			rejected[j] = !opts.Filter(r.Resolve(name))
		}
	}

	for c := range comps {
		written := make(map[int]float64)
		for j, old := range rec.Influences.Indices {
			w := rec.Weights.At(c, j, numInf)
			switch {
			case rejected[j]:
				if w != 0 {
					report.Filtered++
				}
				continue
			case w < opts.WeightThreshold:
				if w != 0 {
					report.BelowThreshold++
				}
				continue
			}
			idx, ok := res.Lookup(m, old)
			if !ok {
				if w != 0 {
					report.Skipped++
				}
				continue
			}
			written[idx] = w
		}
		if len(written) == 0 {
			continue
		}

		if opts.Normalize {
			if err := normalizer.Normalize(s, skin, c, written); err != nil {
				env.Warn(skin.Name(), "normalize failed", err)
				continue
			}
		} else {
			for _, idx := range slices.Sorted(maps.Keys(written)) {
				if err := s.SetWeight(skin, c, idx, written[idx]); err != nil {
					env.Warn(skin.Name(), "set weight failed", err)
					delete(written, idx)
				}
			}
		}
		report.Written += len(written)
	}
	return nil
}
