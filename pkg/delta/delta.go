// Package delta recovers pose-space deltas from sculpted meshes.
//
// Given a skinned mesh and a sculpt of it in the current pose, [Decompose]
// finds, for each sculpted vertex, the offset that must be added to the
// bind-pose (intermediate) mesh so that the deformed mesh reproduces the
// sculpt. Stored on a blend-shape target placed before the skin cluster,
// the offset then travels with the deformation.
//
// The deformation is never inverted in closed form. Instead the base mesh
// is sampled: every base point is offset by Step along one axis at a time
// and the deformed mesh re-evaluated. The three displacement columns form
// a local basis J per vertex, and with
//
//	M0 = translate(P0[i])
//	M1 = [J | P1[i]]
//
// the bind-space point is M0 · M1⁻¹ · T[i]. This holds exactly for linear
// blend skinning and approximately for any locally linear deformer.
//
// # Usage
//
//	d, err := delta.Decompose(s, nil, bodyShape, sculpt, delta.Options{})
//	if errors.Is(err, errors.ErrCodeDegenerateBasis) {
//	    // a joint is scaled to zero
//	}
//	err = nodes.ApplyPoseDelta(s, bs, "smile", 0, d)
package delta

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultThreshold is the distance under which a sculpted vertex counts
	// as unchanged.
	DefaultThreshold = 0.001

	// DefaultStep is the sample offset along each axis.
	DefaultStep = 1.0

	// DefaultEpsilon is the smallest basis determinant accepted.
	DefaultEpsilon = 1e-9
)

// Options controls Decompose. Zero fields take the defaults above.
type Options struct {
	Threshold float64
	Step      float64
	Epsilon   float64
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Threshold < 0 || o.Step < 0 || o.Epsilon < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "decompose options must not be negative")
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Step == 0 {
		o.Step = DefaultStep
	}
	if o.Epsilon == 0 {
		o.Epsilon = DefaultEpsilon
	}
	return nil
}

// Decompose returns the bind-space deltas that make deformed match target.
// base is the pre-deformation mesh whose points drive deformed; nil means
// the intermediate sibling of deformed.
//
// Only vertices further than opts.Threshold from the target are listed.
// When none is, the result is empty and no sampling runs. The base points are
// restored before Decompose returns, whether it fails or not.
func Decompose(s scene.Scene, base, deformed scene.Node, target []scene.Vec3, opts Options) (d *record.DeltaMap, err error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if base == nil {
		if base, err = s.IntermediateSibling(deformed); err != nil {
			return nil, err
		}
		if base == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s is not deformed", deformed.Name())
		}
	}

	p0, err := s.EvaluatePoints(base)
	if err != nil {
		return nil, err
	}
	p1, err := s.EvaluatePoints(deformed)
	if err != nil {
		return nil, err
	}
	if len(p0) != len(p1) || len(p1) != len(target) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"point counts differ: base %d, deformed %d, target %d", len(p0), len(p1), len(target))
	}

	changed := Changed(p1, target, opts.Threshold)
	d = &record.DeltaMap{}
	if len(changed) == 0 {
		return d, nil
	}

	defer func() {
		if rerr := s.SetPoints(base, p0); rerr != nil && err == nil {
			d, err = nil, errors.Wrap(errors.ErrCodeInternal, rerr, "restore %s", base.Name())
		}
	}()

	var samples [3][]scene.Vec3
	for axis := range 3 {
		if samples[axis], err = sampleAxis(s, base, deformed, p0, axis, opts.Step); err != nil {
			return nil, err
		}
	}

	for _, i := range changed {
		var cols [3]scene.Vec3
		for axis := range 3 {
			cols[axis] = samples[axis][i].Sub(p1[i]).Mul(1 / opts.Step)
		}
		m1 := mgl64.Mat4FromCols(cols[0].Vec4(0), cols[1].Vec4(0), cols[2].Vec4(0), p1[i].Vec4(1))
		if det := m1.Det(); math.Abs(det) < opts.Epsilon {
			return nil, errors.New(errors.ErrCodeDegenerateBasis,
				"vertex %d of %s: local basis is singular (det %g)", i, deformed.Name(), det)
		}
		m0 := mgl64.Translate3D(p0[i].X(), p0[i].Y(), p0[i].Z())
		corrected := m0.Mul4(m1.Inv()).Mul4x1(target[i].Vec4(1)).Vec3()
		d.Set(i, corrected.Sub(p0[i]))
	}
	return d, nil
}

// Changed returns the indices of target points further than threshold
// from the matching deformed point.
func Changed(deformed, target []scene.Vec3, threshold float64) []int {
	var out []int
	for i := range min(len(deformed), len(target)) {
		if scene.Distance(deformed[i], target[i]) > threshold {
			out = append(out, i)
		}
	}
	return out
}

// sampleAxis offsets every base point along axis and returns the deformed
// points.
func sampleAxis(s scene.Scene, base, deformed scene.Node, p0 []scene.Vec3, axis int, step float64) ([]scene.Vec3, error) {
	pts := slices.Clone(p0)
	for i := range pts {
		pts[i][axis] += step
	}
	if err := s.SetPoints(base, pts); err != nil {
		return nil, err
	}
	return s.EvaluatePoints(deformed)
}
