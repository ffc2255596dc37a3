package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/nodes"
)

// pruneCommand creates the prune command.
func (c *CLI) pruneCommand() *cobra.Command {
	var (
		tol    float64
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "prune <skin>...",
		Short: "Remove small skin weights",
		Long: `Prune zeroes the weights below the tolerance, rescales the touched components
to sum to 1 and removes influences left without any weight.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := c.newEngine(false)
			if err != nil {
				return err
			}
			for _, name := range args {
				skin, err := s.Lookup(name)
				if err != nil {
					return err
				}
				res, err := nodes.PruneWeights(s, skin, tol)
				if err != nil {
					return fmt.Errorf("prune %s: %w", name, err)
				}
				loggerFromContext(cmd.Context()).Debug("pruned weights", "skin", name, "zeroed", res.Zeroed)
				printSuccess("Pruned %s", StyleHighlight.Render(name))
				printStats(stat{res.Zeroed, "weights zeroed"}, stat{res.Normalized, "components normalized"})
				if len(res.Removed) > 0 {
					printDetail("removed %s", strings.Join(res.Removed, ", "))
				}
			}
			if dryRun {
				return nil
			}
			return c.saveScene(s)
		},
	}

	cmd.Flags().Float64Var(&tol, "tol", 0.001, "weights below this value are removed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not save the scene")

	return cmd
}
