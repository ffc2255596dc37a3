package engine

import (
	"context"
	"time"

	"github.com/matzehuels/rigstash/pkg/delta"
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/nodes"
	"github.com/matzehuels/rigstash/pkg/observability"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// DecomposeOptions controls Decompose.
type DecomposeOptions struct {
	delta.Options

	// Base names the undeformed shape. Empty means the intermediate shape
	// of the deformed mesh.
	Base string

	// BlendShape, when set, receives the delta as the full-weight shape of
	// target TargetIndex. TargetName names the target if it is created.
	BlendShape  string
	TargetName  string
	TargetIndex int
}

// Decompose computes the pre-deformation delta that makes the deformed
// mesh match target in the current pose, and optionally stores it on a
// blend-shape target.
func (e *Engine) Decompose(ctx context.Context, deformed string, target []scene.Vec3, opts DecomposeOptions) (d *record.DeltaMap, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if d != nil {
			n = d.Len()
		}
		observability.Engine().OnDecompose(ctx, n, time.Since(start), err)
	}()

	s := e.Scene
	mesh, err := s.Lookup(deformed)
	if err != nil {
		return nil, err
	}
	var base scene.Node
	if opts.Base != "" {
		if base, err = s.Lookup(opts.Base); err != nil {
			return nil, err
		}
	}

	d, err = delta.Decompose(s, base, mesh, target, opts.Options)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("decomposed pose delta", "mesh", deformed, "vertices", d.Len(), "duration", time.Since(start))

	if opts.BlendShape == "" {
		return d, nil
	}
	bs, err := s.Lookup(opts.BlendShape)
	if err != nil {
		return nil, err
	}
	if bs.Type() != "blendShape" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is a %s, not a blendShape", bs.Name(), bs.Type())
	}
	if err := nodes.ApplyPoseDelta(s, bs, opts.TargetName, opts.TargetIndex, d); err != nil {
		return nil, err
	}
	e.Logger.Info("stored pose delta", "blend_shape", bs.Name(), "target", opts.TargetIndex)
	return d, nil
}
