package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// Execute runs the rigstash CLI with args and logs to w.
//
// The persistent flags --verbose (-v) and --quiet (-q) select debug or
// warn level logging; --log-format picks text, logfmt or json. The logger
// reaches every command through its context.
func Execute(ctx context.Context, w io.Writer, args []string) error {
	var (
		verbose, quiet bool
		format         string
	)

	c := New(w, LogInfo)
	root := c.RootCommand()
	flags := root.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVarP(&quiet, "quiet", "q", false, "log warnings and errors only")
	flags.StringVar(&format, "log-format", "text", "log format: text, logfmt or json")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")
	_ = root.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions(
		[]string{"text", "logfmt", "json"}, cobra.ShellCompDirectiveNoFileComp))

	attach := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch {
		case verbose:
			c.SetLogLevel(LogDebug)
		case quiet:
			c.SetLogLevel(LogWarn)
		}
		if err := c.SetLogFormat(format); err != nil {
			return err
		}
		return attach(cmd, args)
	}

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
