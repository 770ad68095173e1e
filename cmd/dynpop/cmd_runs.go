package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded simulation runs",
		Long: `List, show and delete runs recorded with simulate --record.

The history database defaults to output.record from the config file,
or ~/.dynpop/history.db.

Examples:
  dynpop runs list --limit 5
  dynpop runs show 6f1c... --round 3
  dynpop runs delete 6f1c...`,
	}

	cmd.PersistentFlags().String("db", "", "History database (default output.record or ~/.dynpop/history.db)")

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
	)

	return cmd
}

// openHistory opens the history database chosen by --db, the config file
// or the default location. It refuses to create a database that does not
// exist yet.
func openHistory(cmd *cobra.Command) (*store.SQLiteHistoryStore, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		settings, err := loadSettings(cmd)
		if err != nil {
			return nil, err
		}
		path = settings.Output.Record
	}
	path, err := store.ResolveHistoryPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no run history at %s: %w", path, err)
	}
	return store.NewSQLiteHistoryStore(path)
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			history, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer history.Close()

			runs, err := history.ListRuns(context.Background(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-8s  %-20s  %6s  %-11s  %s\n", "ID", "MODEL", "GRAPH", "ROUNDS", "REASON", "CREATED")
			for _, r := range runs {
				rounds, reason := "-", "unfinished"
				if r.Summary != nil {
					rounds = fmt.Sprintf("%d", r.Summary.Rounds)
					reason = string(r.Summary.Reason)
				}
				fmt.Fprintf(out, "%-36s  %-8s  %-20s  %6s  %-11s  %s\n",
					r.ID, r.Model, truncate(r.Graph, 20), rounds, reason, r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", constants.MaxRunsListed, "Maximum runs to list (0 for all)")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show a run's summary and per-round counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ctx := context.Background()

			history, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer history.Close()

			run, err := history.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			rounds, err := history.Rounds(ctx, run.ID)
			if err != nil {
				return err
			}

			var states map[string]models.NodeState
			round := -1
			if cmd.Flags().Changed("round") {
				round, _ = cmd.Flags().GetInt("round")
				if round < 0 || round >= len(rounds) {
					return fmt.Errorf("run %s has rounds 0-%d, not %d", run.ID, len(rounds)-1, round)
				}
				if states, err = history.NodeStates(ctx, run.ID, round); err != nil {
					return err
				}
			}

			if jsonOut {
				result := map[string]interface{}{
					"run":    run,
					"rounds": rounds,
				}
				if states != nil {
					result["round"] = round
					result["states"] = states
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", run.ID)
			fmt.Fprintf(out, "  graph:   %s\n", run.Graph)
			fmt.Fprintf(out, "  model:   %s\n", run.Model)
			fmt.Fprintf(out, "  created: %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if run.Summary != nil {
				fmt.Fprintf(out, "  seed:    %d\n", run.Summary.Seed)
				fmt.Fprintf(out, "  ended:   round %d (%s)\n", run.Summary.Rounds, run.Summary.Reason)
			} else {
				fmt.Fprintln(out, "  ended:   (unfinished)")
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "  %5s  %5s  %5s  %s\n", "ROUND", "NEW", "REC", "COUNTS")
			for _, rec := range rounds {
				fmt.Fprintf(out, "  %5d  %5d  %5d  %s\n", rec.Round, rec.NewTransitions, rec.Recoveries, formatCounts(rec.Counts))
			}

			if states != nil {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Node states at round %d:\n", round)
				for _, id := range sortedKeys(states) {
					st := states[id]
					if st.Status == models.Infected {
						fmt.Fprintf(out, "  %s: %s (%d left)\n", id, st.Status, st.DaysRemaining)
					} else {
						fmt.Fprintf(out, "  %s: %s\n", id, st.Status)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().Int("round", 0, "Also print every node's state at this round")

	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run_id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			history, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer history.Close()

			if err := history.DeleteRun(context.Background(), args[0]); err != nil {
				if errors.Is(err, store.ErrRunNotFound) {
					return fmt.Errorf("run not found: %s", args[0])
				}
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"status": "deleted",
					"id":     args[0],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
