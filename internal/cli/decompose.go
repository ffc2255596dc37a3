package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/engine"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// decomposeOpts holds the command-line flags for the decompose command.
type decomposeOpts struct {
	base        string
	targetFile  string
	targetMesh  string
	blendShape  string
	targetName  string
	targetIndex int
	threshold   float64
	step        float64
	output      string
	dryRun      bool
}

// decomposeCommand creates the decompose command.
func (c *CLI) decomposeCommand() *cobra.Command {
	var opts decomposeOpts

	cmd := &cobra.Command{
		Use:   "decompose <deformed-mesh>",
		Short: "Turn a sculpt in the current pose into a pose-space delta",
		Long: `Decompose finds the offset each sculpted vertex needs before deformation for
the deformed mesh to match the sculpt in the current pose. The sculpt is read
from a JSON file of [x, y, z] points or from another mesh in the scene. With
--blendshape the delta is stored on a blend-shape target.`,
		Example: `  rigstash decompose bodyShape --target-mesh body_sculpt --blendshape body_bs --target-name smile
  rigstash decompose bodyShape --target-file sculpt.json -o delta.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDecompose(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.base, "base", "", "undeformed shape (default: the mesh's pre-deformation shape)")
	cmd.Flags().StringVar(&opts.targetFile, "target-file", "", "JSON file of sculpted points")
	cmd.Flags().StringVar(&opts.targetMesh, "target-mesh", "", "scene mesh holding the sculpt")
	cmd.Flags().StringVar(&opts.blendShape, "blendshape", "", "blend shape to store the delta on")
	cmd.Flags().StringVar(&opts.targetName, "target-name", "", "name of the blend-shape target")
	cmd.Flags().IntVar(&opts.targetIndex, "target", 0, "blend-shape target index")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "distance under which a vertex counts as unchanged")
	cmd.Flags().Float64Var(&opts.step, "step", 0, "sample offset along each axis")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the delta as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "do not save the scene")
	cmd.MarkFlagsMutuallyExclusive("target-file", "target-mesh")
	cmd.MarkFlagsOneRequired("target-file", "target-mesh")

	return cmd
}

func (c *CLI) runDecompose(cmd *cobra.Command, deformed string, opts decomposeOpts) error {
	ctx := cmd.Context()
	prog := newProgress(loggerFromContext(ctx))

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	e, s, err := c.newEngine(false)
	if err != nil {
		return err
	}

	var target []scene.Vec3
	if opts.targetMesh != "" {
		n, err := s.Lookup(opts.targetMesh)
		if err != nil {
			return err
		}
		if target, err = s.EvaluatePoints(n); err != nil {
			return err
		}
	} else if target, err = readPoints(opts.targetFile); err != nil {
		return err
	}

	do := engine.DecomposeOptions{
		Options:     cfg.DecomposeOptions(),
		Base:        opts.base,
		BlendShape:  opts.blendShape,
		TargetName:  opts.targetName,
		TargetIndex: opts.targetIndex,
	}
	if cmd.Flags().Changed("threshold") {
		do.Threshold = opts.threshold
	}
	if cmd.Flags().Changed("step") {
		do.Step = opts.step
	}

	d, err := e.Decompose(ctx, deformed, target, do)
	if err != nil {
		return err
	}
	prog.done("Decomposed", "vertices", d.Len())
	printSuccess("Decomposed %s", StyleHighlight.Render(deformed))
	printStats(stat{d.Len(), "vertices moved"})

	if opts.output != "" {
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.output, data, 0o644); err != nil {
			return err
		}
		printFile(opts.output)
	}
	if opts.blendShape == "" || opts.dryRun {
		return nil
	}
	return c.saveScene(s)
}

// readPoints reads a JSON array of [x, y, z] points.
func readPoints(path string) ([]scene.Vec3, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pts []scene.Vec3
	if err := json.Unmarshal(data, &pts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return pts, nil
}
