package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/mcp"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/metrics"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Serve the dynpop_simulate, dynpop_graph_info and dynpop_runs tools to
an MCP client over stdin/stdout.

Graph and export paths are confined to --root and ~/.dynpop. Runs the
client records go to --history (default output.record), or stay in
memory when neither is set. Logs go to stderr.

Example client configuration:
  {"command": "dynpop", "args": ["mcp-server", "--root", "/path/to/graphs"]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			historyPath, _ := cmd.Flags().GetString("history")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			if historyPath == "" {
				historyPath = settings.Output.Record
			}

			logger := newLogger(settings, os.Stderr)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var reg *metrics.Registry
			if metricsAddr != "" {
				reg = metrics.NewRegistry()
				exporter := metrics.NewExporter(metricsAddr, reg)
				go func() {
					if err := exporter.Serve(ctx); err != nil {
						logger.Error("metrics exporter stopped", "addr", metricsAddr, "error", err)
					}
				}()
				logger.Info("serving metrics", "addr", metricsAddr)
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:        "dynpop",
				Version:     version,
				Root:        root,
				HistoryPath: historyPath,
				Settings:    settings,
				Logger:      logger,
				Metrics:     reg,
			})
			if err != nil {
				return fmt.Errorf("failed to start MCP server: %w", err)
			}

			if err := server.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("MCP server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("history", "", "History database for recorded runs (default output.record, else in memory)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}
