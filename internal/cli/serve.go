package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rigstash/internal/server"
	"github.com/matzehuels/rigstash/pkg/config"
	"github.com/matzehuels/rigstash/pkg/observability/prom"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document store over HTTP",
		Long: `Serve exposes the configured store as a JSON API under /api/v1/documents, with
dependency graphs of stored documents and Prometheus metrics at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			opts := server.Options{
				Logger:       logger,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
				ReadTimeout:  cfg.Server.ReadTimeout,
			}
			if cfg.Server.Metrics && !noMetrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				m := prom.New(reg)
				m.Install()
				opts.Metrics = m.Handler()
			}

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			srv, err := server.New(st, opts)
			if err != nil {
				return err
			}
			printInfo("Listening on %s", StyleHighlight.Render(cfg.Server.Addr))
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default "+config.DefaultAddr+")")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not serve /metrics")

	return cmd
}
