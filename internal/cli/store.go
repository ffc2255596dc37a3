package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/store"
)

// storeCommand creates the store management command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage stored record documents",
		Long: `Store moves record documents in and out of the configured store. The backend
is chosen by the [store] config section or RIGSTASH_STORE (file, redis, mongo,
null); the file store lives under the XDG data directory by default.`,
	}

	cmd.AddCommand(c.storePutCommand())
	cmd.AddCommand(c.storeGetCommand())
	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeDeleteCommand())
	cmd.AddCommand(c.storeClearCommand())
	cmd.AddCommand(c.storePathCommand())

	return cmd
}

// withStore opens the store, runs fn and closes the store.
func (c *CLI) withStore(ctx context.Context, fn func(store.Store) error) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// storePutCommand creates the "store put" subcommand.
func (c *CLI) storePutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <document>",
		Short: "Store a document file under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := record.ReadFile(args[1])
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(st store.Store) error {
				entry, err := st.Put(cmd.Context(), args[0], doc)
				if err != nil {
					return err
				}
				printSuccess("Stored %s", StyleHighlight.Render(entry.Key))
				printKeyValue("Revision", entry.ID)
				printKeyValue("Nodes", fmt.Sprint(entry.Nodes))
				printKeyValue("Size", formatSize(entry.Size))
				return nil
			})
		},
	}
}

// storeGetCommand creates the "store get" subcommand.
func (c *CLI) storeGetCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Write a stored document to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				doc, _, err := st.Get(cmd.Context(), args[0])
				if store.IsNotFound(err) {
					return fmt.Errorf("document %q is not in the store", args[0])
				}
				if err != nil {
					return err
				}
				if output == "" {
					return record.Write(doc, cmd.OutOrStdout())
				}
				if err := record.WriteFile(doc, output); err != nil {
					return err
				}
				printFile(output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

// storeListCommand creates the "store list" subcommand.
func (c *CLI) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				entries, err := spin(cmd.Context(), "Listing documents...", func() ([]store.Entry, error) {
					return st.List(cmd.Context())
				})
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					printInfo("Store is empty")
					return nil
				}
				printBlock(entryTable(entries, time.Now()))
				return nil
			})
		},
	}
}

// storeDeleteCommand creates the "store delete" subcommand.
func (c *CLI) storeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Delete stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				for _, key := range args {
					if err := st.Delete(cmd.Context(), key); err != nil {
						return fmt.Errorf("delete %s: %w", key, err)
					}
					printSuccess("Deleted %s", key)
				}
				return nil
			})
		},
	}
}

// storeClearCommand creates the "store clear" subcommand.
func (c *CLI) storeClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				entries, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					printInfo("Store is empty")
					return nil
				}
				for _, e := range entries {
					if err := st.Delete(cmd.Context(), e.Key); err != nil {
						return fmt.Errorf("delete %s: %w", e.Key, err)
					}
				}
				printSuccess("Cleared %d documents", len(entries))
				return nil
			})
		},
	}
}

// storePathCommand creates the "store path" subcommand.
func (c *CLI) storePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file store directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				fs, ok := store.Underlying(st).(*store.FileStore)
				if !ok {
					return fmt.Errorf("the configured store is not a file store")
				}
				fmt.Fprintln(cmd.OutOrStdout(), fs.Dir())
				return nil
			})
		},
	}
}
