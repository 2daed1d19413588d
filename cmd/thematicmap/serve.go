package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/szz00712/bibliometrix/internal/mcp"
	"github.com/szz00712/bibliometrix/internal/service"
	"github.com/szz00712/bibliometrix/internal/viz"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive thematic map and its JSON API",
		Long: `Serve the interactive strategic diagram on localhost.

Endpoints:
  /                 interactive map
  /api/map          compute a map (network_id, field, minfreq, n, seed, algorithm)
  /api/networks     imported networks
  /api/runs         saved runs; /api/runs/{id} for one run
  /api/stats        database statistics
  /metrics          Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			svc, s, err := a.newService(service.Config{
				CacheSize:  a.settings.CacheSize,
				Registerer: reg,
			})
			if err != nil {
				return err
			}
			defer s.Close()

			return viz.Serve(cmd.Context(), viz.ServerConfig{
				Service:   svc,
				Defaults:  a.settings.ThematicOptions(),
				Algorithm: a.settings.Algorithm,
				Gatherer:  reg,
				Port:      a.settings.Port,
				Logger:    a.log,
			})
		},
	}
	cmd.Flags().Int("port", 0, "listen port (default 8090)")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout.

Tools: thematic_map, list_networks, list_runs, get_run.
Resources: thematicmap://runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, s, err := a.newService(service.Config{CacheSize: a.settings.CacheSize})
			if err != nil {
				return err
			}
			defer s.Close()

			a.log.Info("mcp server starting", "db", a.settings.DBPath)
			return mcp.ServeStdio(mcp.ServerConfig{
				Service:   svc,
				Defaults:  a.settings.ThematicOptions(),
				Algorithm: a.settings.Algorithm,
				Version:   version,
				Logger:    a.log,
			})
		},
	}
}
