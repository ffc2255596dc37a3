package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/engine"
	"github.com/matzehuels/rigstash/pkg/record"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	output        string // output document path
	key           string // store key to put the document under
	noCreation    bool
	noConnections bool
	noPayload     bool
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export [node...]",
		Short: "Record scene nodes into a document",
		Long: `Export records the named scene nodes, or every node when none are named, into a
record document in creation-safe order. Pre-deformation shapes are skipped when
exporting the whole scene; their data travels with the deformed shape.`,
		Example: `  rigstash export -o rig.json
  rigstash export body_skin bodyShape -o skin.json --no-connections
  rigstash export --key characters/hero`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.key, "key", "", "also put the document into the store under this key")
	cmd.Flags().BoolVar(&opts.noCreation, "no-creation", false, "omit creation data")
	cmd.Flags().BoolVar(&opts.noConnections, "no-connections", false, "omit connections")
	cmd.Flags().BoolVar(&opts.noPayload, "no-payload", false, "omit payloads")

	return cmd
}

func (c *CLI) runExport(cmd *cobra.Command, names []string, opts exportOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	e, s, err := c.newEngine(false)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = sceneNodes(s)
	}

	doc, err := e.ExportNames(ctx, engine.ExportOptions{
		Creation:    !opts.noCreation,
		Connections: !opts.noConnections,
		Payload:     !opts.noPayload,
	}, names...)
	if err != nil {
		return err
	}
	prog.done("Exported", "nodes", len(doc.Nodes))

	if opts.key != "" {
		st, err := c.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		entry, err := st.Put(ctx, opts.key, doc)
		if err != nil {
			return fmt.Errorf("store %s: %w", opts.key, err)
		}
		printSuccess("Stored %s", StyleHighlight.Render(entry.Key))
		printDetail("revision %s", entry.ID)
		printNextStep("Load it with", appName+" load --key "+entry.Key)
	}

	if opts.output == "" {
		if opts.key != "" {
			return nil
		}
		return record.Write(doc, cmd.OutOrStdout())
	}
	if err := record.WriteFile(doc, opts.output); err != nil {
		return err
	}
	printSuccess("Exported %d nodes", len(doc.Nodes))
	printFile(opts.output)
	printNextStep("Load it with", appName+" load "+opts.output)
	return nil
}
