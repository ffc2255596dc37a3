package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/store"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for rigstash.

Completions cover subcommands and flags, the keys held in the configured
document store (load --key, store get, store delete) and the node names of
the scene snapshot (export, prune).

  $ source <(rigstash completion bash)
  $ rigstash completion zsh > "${fpath[1]}/_rigstash"
  $ rigstash completion fish | source
  PS> rigstash completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

// registerCompletions attaches dynamic completions to the commands under
// root that take store keys or scene node names.
func (c *CLI) registerCompletions(root *cobra.Command) {
	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		if cmd.Flags().Lookup("key") != nil {
			_ = cmd.RegisterFlagCompletionFunc("key", c.completeStoreKeys)
		}
		switch cmd.CommandPath() {
		case appName + " store get", appName + " store delete":
			cmd.ValidArgsFunction = c.completeStoreKeys
		case appName + " export", appName + " prune":
			cmd.ValidArgsFunction = c.completeSceneNodes
		}
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(root)
}

// completeStoreKeys offers the keys of the configured store. Keys already
// named on the command line are left out.
func (c *CLI) completeStoreKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var keys []string
	err := c.withStore(ctx, func(st store.Store) error {
		entries, err := st.List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Key, toComplete) && !slices.Contains(args, e.Key) {
				keys = append(keys, fmt.Sprintf("%s\t%d nodes", e.Key, e.Nodes))
			}
		}
		return nil
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}

// completeSceneNodes offers the node names of the scene snapshot.
func (c *CLI) completeSceneNodes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	_, s, err := c.newEngine(false)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, name := range sceneNodes(s) {
		if strings.HasPrefix(name, toComplete) && !slices.Contains(args, name) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
