package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/pkg/buildinfo"
	"github.com/matzehuels/rigstash/pkg/config"
	"github.com/matzehuels/rigstash/pkg/engine"
	"github.com/matzehuels/rigstash/pkg/scene/memory"
	"github.com/matzehuels/rigstash/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "rigstash"

	// defaultScene is the scene snapshot used when --scene is not given.
	defaultScene = "scene.json"
)

// Log levels accepted by New and SetLogLevel.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	scenePath  string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "rigstash captures scene graphs as records and rebuilds them",
		Long:         `rigstash exports the nodes of a scene (deformers, meshes, curves, sets) to a portable record document and reconstructs or merges them into another scene.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	root.PersistentFlags().StringVar(&c.scenePath, "scene", defaultScene, "scene snapshot file")

	root.AddCommand(c.exportCommand())
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.mergeCommand())
	root.AddCommand(c.decomposeCommand())
	root.AddCommand(c.pruneCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())
	c.registerCompletions(root)

	return root
}

// =============================================================================
// Config and Scene
// =============================================================================

// loadConfig loads the configuration once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// newEngine opens the scene snapshot and builds an engine over it. A
// missing snapshot yields an empty scene when allowEmpty is set.
func (c *CLI) newEngine(allowEmpty bool) (*engine.Engine, *memory.Scene, error) {
	s, err := memory.LoadFile(c.scenePath)
	switch {
	case err == nil:
	case allowEmpty && errors.Is(err, os.ErrNotExist):
		c.Logger.Debug("starting from an empty scene", "path", c.scenePath)
		s = memory.New()
	default:
		return nil, nil, fmt.Errorf("open scene: %w", err)
	}
	return engine.New(s, nil, c.Logger), s, nil
}

// saveScene writes s back to the scene snapshot.
func (c *CLI) saveScene(s *memory.Scene) error {
	if err := s.SaveFile(c.scenePath); err != nil {
		return fmt.Errorf("save scene: %w", err)
	}
	printFile(c.scenePath)
	return nil
}

// sceneNodes returns the names export-all should record: every node
// except the pre-deformation shapes a deformed mesh keeps.
func sceneNodes(s *memory.Scene) []string {
	skip := s.Intermediates()
	return slices.DeleteFunc(s.Names(), func(name string) bool {
		return slices.Contains(skip, name)
	})
}

// =============================================================================
// Store Factory
// =============================================================================

// openStore opens the configured document store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, opts)
}
