// Package cli implements the rigstash command-line interface.
//
// The CLI drives the engine against a scene snapshot file (--scene) and
// moves record documents between files and the configured store.
//
// # Commands
//
// The main commands are:
//   - export: Record scene nodes into a document
//   - load: Rebuild a document into the scene
//   - merge: Merge recorded weights and attributes onto existing nodes
//   - decompose: Store a sculpt as a pose-space blend-shape delta
//   - prune: Drop small skin weights
//   - inspect, graph: Show a document as a table or a dependency graph
//   - store: Manage stored documents
//   - serve: Run the HTTP API
//
// # Logging
//
// Logs go to stderr; command results go to stdout. --verbose and --quiet
// set the level, --log-format switches to logfmt or JSON for scripts.
// Loggers are passed through context.Context.
//
// # Example
//
//	import "github.com/matzehuels/rigstash/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Stderr, os.Args[1:]); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// logFormats maps --log-format values to formatters.
var logFormats = map[string]log.Formatter{
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// newLogger returns a text logger on w with short timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// SetLogFormat switches the logger to the named format.
func (c *CLI) SetLogFormat(name string) error {
	f, ok := logFormats[strings.ToLower(name)]
	if !ok {
		names := slices.Sorted(maps.Keys(logFormats))
		return fmt.Errorf("unknown log format %q (want one of %s)", name, strings.Join(names, ", "))
	}
	c.Logger.SetFormatter(f)
	return nil
}

// progress times one command phase.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the time elapsed since newProgress, e.g.
// "Loaded 12 nodes took=1.234s".
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg, append(keyvals, "took", time.Since(p.start).Round(time.Millisecond))...)
}

type ctxKey struct{}

// withLogger attaches l to ctx for the engine and handlers below a command.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
