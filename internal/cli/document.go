package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/store"
)

// docSource selects where a command reads its record document from: a
// file argument, a store key or an interactive pick from the store.
type docSource struct {
	key  string
	pick bool
}

func (d *docSource) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.key, "key", "", "read the document from the store")
	cmd.Flags().BoolVar(&d.pick, "pick", false, "pick the document from the store interactively")
	cmd.MarkFlagsMutuallyExclusive("key", "pick")
}

// errNoDocument is returned when no document source was given.
var errNoDocument = errors.New("no document: pass a file, --key or --pick")

// readDocument reads the document selected by args and src. The returned
// label names the source for display.
func (c *CLI) readDocument(ctx context.Context, args []string, src docSource) (*record.Document, string, error) {
	if len(args) > 0 {
		if src.key != "" || src.pick {
			return nil, "", fmt.Errorf("a document file cannot be combined with --key or --pick")
		}
		doc, err := record.ReadFile(args[0])
		if err != nil {
			return nil, "", err
		}
		return doc, args[0], nil
	}
	if src.key == "" && !src.pick {
		return nil, "", errNoDocument
	}

	st, err := c.openStore(ctx)
	if err != nil {
		return nil, "", err
	}
	defer st.Close()

	key := src.key
	if src.pick {
		entry, err := pickEntry(ctx, st)
		if err != nil {
			return nil, "", err
		}
		if entry == nil {
			return nil, "", context.Canceled
		}
		key = entry.Key
	}

	doc, entry, err := st.Get(ctx, key)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, "", fmt.Errorf("document %q is not in the store", key)
		}
		return nil, "", err
	}
	loggerFromContext(ctx).Debug("read stored document", "key", key, "revision", entry.ID)
	return doc, "store:" + key, nil
}

// pickEntry lists the store and lets the user choose a document. It
// returns nil when the user quits without choosing.
func pickEntry(ctx context.Context, st store.Store) (*store.Entry, error) {
	entries, err := spin(ctx, "Listing documents...", func() ([]store.Entry, error) {
		return st.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("the store is empty")
	}

	final, err := tea.NewProgram(NewDocumentListModel(entries), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("document picker: %w", err)
	}
	return final.(DocumentListModel).Selected, nil
}
