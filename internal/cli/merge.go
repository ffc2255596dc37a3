package cli

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/errors"
)

// mergeOpts holds the command-line flags for the merge command.
type mergeOpts struct {
	src       docSource
	rename    renameOpts
	nodes     []string
	normalize bool
	threshold float64
	filter    string
	dryRun    bool
}

// mergeCommand creates the merge command.
func (c *CLI) mergeCommand() *cobra.Command {
	var opts mergeOpts

	cmd := &cobra.Command{
		Use:   "merge [document]",
		Short: "Merge recorded data onto existing nodes",
		Long: `Merge writes the payload of each record onto the live node of the same name
without creating or deleting nodes. Skin weights are merged per influence:
recorded influences missing from the deformer are added, influences absent
from the record are kept. Merging the same document twice changes nothing
the second time.`,
		Example: `  rigstash merge skin.json --normalize
  rigstash merge skin.json --node body_skin --threshold 0.01 --filter '^L_'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMerge(cmd, args, opts)
		},
	}

	opts.src.addFlags(cmd)
	opts.rename.addFlags(cmd)
	cmd.Flags().StringSliceVar(&opts.nodes, "node", nil, "merge only these records")
	cmd.Flags().BoolVar(&opts.normalize, "normalize", false, "keep merged components summing to 1")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "skip recorded weights below this value")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "regular expression influences must match to be added or to receive weights")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "do not save the scene")

	return cmd
}

func (c *CLI) runMerge(cmd *cobra.Command, args []string, opts mergeOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	mo, err := cfg.MergeOptions()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("normalize") {
		mo.Normalize = opts.normalize
	}
	if cmd.Flags().Changed("threshold") {
		mo.WeightThreshold = opts.threshold
	}
	if opts.filter != "" {
		re, err := regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("--filter: %w", err)
		}
		mo.Filter = re.MatchString
	}
	opts.rename.apply(cmd, &mo.NameMap, &mo.NamespaceMap)
	if err := mo.ValidateAndSetDefaults(); err != nil {
		return err
	}

	doc, label, err := c.readDocument(ctx, args, opts.src)
	if err != nil {
		return err
	}
	e, s, err := c.newEngine(false)
	if err != nil {
		return err
	}

	var merged, written, skipped, warnings int
	for _, rec := range doc.Nodes {
		if len(opts.nodes) > 0 && !slices.Contains(opts.nodes, rec.Name) {
			continue
		}
		report, err := e.Merge(ctx, rec, mo)
		if errors.Is(err, errors.ErrCodeNotFound) {
			printWarning("%s: not in the scene, skipped", rec.Name)
			warnings++
			continue
		}
		if err != nil {
			return fmt.Errorf("merge %s: %w", rec.Name, err)
		}
		printWarnings(report.Warnings)
		for _, inf := range report.Added {
			printDetail("%s: added influence %s", report.Node, inf)
		}
		merged++
		written += report.Written
		skipped += report.Skipped + report.Filtered + report.BelowThreshold
		warnings += len(report.Warnings)
	}
	prog.done("Merged", "nodes", merged)

	printSuccess("Merged %s", StyleHighlight.Render(label))
	printStats(
		stat{merged, "nodes"},
		stat{written, "weights written"},
		stat{skipped, "weights skipped"},
		stat{warnings, "warnings"},
	)

	if opts.dryRun {
		return nil
	}
	return c.saveScene(s)
}
