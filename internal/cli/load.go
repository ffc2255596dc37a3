package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/engine"
)

// renameOpts holds the renaming flags shared by load and merge.
type renameOpts struct {
	nameMap       map[string]string
	namespaceFrom string
	namespaceTo   string
}

func (r *renameOpts) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringToStringVar(&r.nameMap, "name-map", nil, "replace substrings of recorded names (old=new,...)")
	cmd.Flags().StringVar(&r.namespaceFrom, "namespace-from", "", "recorded namespace to rewrite")
	cmd.Flags().StringVar(&r.namespaceTo, "namespace-to", "", "namespace to rewrite to (empty strips it)")
}

// apply overrides the configured renaming with the flags that were set.
func (r *renameOpts) apply(cmd *cobra.Command, nameMap *map[string]string, ns **engine.NamespaceMap) {
	if cmd.Flags().Changed("name-map") {
		*nameMap = r.nameMap
	}
	if cmd.Flags().Changed("namespace-from") || cmd.Flags().Changed("namespace-to") {
		*ns = &engine.NamespaceMap{From: r.namespaceFrom, To: r.namespaceTo}
	}
}

// loadOpts holds the command-line flags for the load command.
type loadOpts struct {
	src             docSource
	rename          renameOpts
	recreate        bool
	skipConnections bool
	skipPayload     bool
	dryRun          bool
}

// loadCommand creates the load command.
func (c *CLI) loadCommand() *cobra.Command {
	var opts loadOpts

	cmd := &cobra.Command{
		Use:   "load [document]",
		Short: "Rebuild a record document into the scene",
		Long: `Load creates or reuses the recorded nodes, then applies connections, then
payloads. Failed connections and payloads are reported as warnings; a node that
cannot be created stops the load. The scene snapshot is rewritten afterwards.`,
		Example: `  rigstash load rig.json
  rigstash load rig.json --namespace-from hero --namespace-to villain
  rigstash load --pick --recreate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLoad(cmd, args, opts)
		},
	}

	opts.src.addFlags(cmd)
	opts.rename.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.recreate, "recreate", false, "delete and recreate nodes that already exist")
	cmd.Flags().BoolVar(&opts.skipConnections, "skip-connections", false, "do not apply recorded connections")
	cmd.Flags().BoolVar(&opts.skipPayload, "skip-payload", false, "do not apply recorded payloads")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "do not save the scene")

	return cmd
}

func (c *CLI) runLoad(cmd *cobra.Command, args []string, opts loadOpts) error {
	ctx := cmd.Context()
	prog := newProgress(loggerFromContext(ctx))

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	doc, label, err := c.readDocument(ctx, args, opts.src)
	if err != nil {
		return err
	}
	e, s, err := c.newEngine(true)
	if err != nil {
		return err
	}

	lo := cfg.LoadOptions()
	if cmd.Flags().Changed("recreate") {
		lo.Recreate = opts.recreate
	}
	lo.SkipConnections = opts.skipConnections
	lo.SkipPayload = opts.skipPayload
	opts.rename.apply(cmd, &lo.NameMap, &lo.NamespaceMap)

	report, err := e.LoadDocument(ctx, doc, lo)
	if report != nil {
		printWarnings(report.Warnings)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", label, err)
	}
	prog.done("Loaded", "nodes", len(report.Nodes()))

	printSuccess("Loaded %s", StyleHighlight.Render(label))
	printStats(
		stat{len(report.Created), "created"},
		stat{len(report.Recreated), "recreated"},
		stat{len(report.Reused), "reused"},
		stat{report.Connected, "connections"},
		stat{len(report.Warnings), "warnings"},
	)
	for _, name := range slices.Sorted(maps.Keys(report.Remapped)) {
		printDetail("%s: influences remapped (%d placeholders)", name, len(report.Remapped[name].Placeholders))
	}

	if opts.dryRun {
		return nil
	}
	return c.saveScene(s)
}
