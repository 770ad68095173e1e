package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <graph_file>",
		Short: "Show statistics for a GML graph",
		Long: `Load a GML graph and print its node and edge counts, directedness and
degree statistics, or render it in DOT (Graphviz) or JSON format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, err := graph.LoadGML(args[0])
			if err != nil {
				return err
			}

			switch format {
			case "", "stats":
				stats := graph.ComputeStats(g)
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
				}
				printStats(cmd, args[0], stats)

			case string(visualization.FormatDOT):
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(g, models.Snapshot{}, filepath.Base(args[0])))

			case string(visualization.FormatJSON):
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(visualization.RenderJSON(g, models.Snapshot{})); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}

			default:
				return fmt.Errorf("unsupported format %q (use stats, dot or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "stats", "Output format: stats, dot, json")

	return cmd
}

func printStats(cmd *cobra.Command, path string, s graph.Stats) {
	kind := "undirected"
	if s.Directed {
		kind = "directed"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", path, kind)
	fmt.Fprintf(out, "  nodes:    %d\n", s.Nodes)
	fmt.Fprintf(out, "  edges:    %d\n", s.Edges)
	fmt.Fprintf(out, "  degree:   min %d, max %d, avg %.2f\n", s.MinDegree, s.MaxDegree, s.AvgDegree)
	fmt.Fprintf(out, "  isolated: %d\n", s.Isolated)
}
