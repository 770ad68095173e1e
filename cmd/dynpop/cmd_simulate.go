package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/config"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/export"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/logging"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/metrics"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/store"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/tui"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/visualization"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <graph_file>",
		Short: "Run a cascade or covid simulation on a GML graph",
		Long: `Load a graph from a GML file and run a spreading process from the
given initiators until no node changes or the round cap is reached.

Examples:
  dynpop simulate net.gml --action cascade --initiator 1,2,5 --threshold 0.33
  dynpop simulate net.gml --action covid --initiator 3 --probability_of_infection 0.2 \
      --lifespan 7 --shelter 0.1 --vaccination 0.2 --plot
  dynpop simulate net.gml --action covid --initiator 3 --interactive --record runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if err := applySimulateFlags(cmd, settings); err != nil {
				return err
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runSimulate(ctx, cmd, args[0], settings)
		},
	}

	cmd.Flags().String("action", "", "Spreading model: cascade or covid")
	cmd.Flags().StringSlice("initiator", nil, "Comma-separated initiator node IDs")
	cmd.Flags().Float64("threshold", 0, "Cascade adoption threshold (default 0.5)")
	cmd.Flags().Float64("probability_of_infection", 0, "Per-contact infection probability (default 0.1)")
	cmd.Flags().Int("lifespan", 0, "Rounds an infection lasts (default 10)")
	cmd.Flags().Float64("shelter", 0, "Fraction of all nodes sheltered, drawn from non-initiators")
	cmd.Flags().Float64("vaccination", 0, "Fraction of all nodes vaccinated, drawn from non-initiators")
	cmd.Flags().Bool("interactive", false, "Step through the rounds in a terminal viewer")
	cmd.Flags().Bool("plot", false, "Plot new adoptions or infections per round")
	cmd.Flags().Uint64("seed", 0, "Random seed for a reproducible run")
	cmd.Flags().Int("max-rounds", 0, "Round cap (0 derives it from the graph)")
	cmd.Flags().String("record", "", "Record the run into this history database")
	cmd.Flags().String("export", "", "Export every round to this file")
	cmd.Flags().String("format", "", "Export format: arrow or jsonl")
	cmd.Flags().String("dot", "", "Write the final state as Graphviz DOT to this file")
	cmd.Flags().String("metrics-out", "", "Write Prometheus metrics to this textfile after the run")

	return cmd
}

// applySimulateFlags overrides settings with the flags the user set.
func applySimulateFlags(cmd *cobra.Command, settings *config.DynpopConfig) error {
	flags := cmd.Flags()
	sim := &settings.Simulation

	if flags.Changed("action") {
		v, _ := flags.GetString("action")
		m, err := models.ParseModel(v)
		if err != nil {
			return fmt.Errorf("%w: %w", simulation.ErrInvalidParameter, err)
		}
		sim.Model = m
	}
	if flags.Changed("initiator") {
		ids, _ := flags.GetStringSlice("initiator")
		sim.Initiators = nil
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				sim.Initiators = append(sim.Initiators, id)
			}
		}
	}
	floats := map[string]*float64{
		"threshold":                &sim.Threshold,
		"probability_of_infection": &sim.Probability,
		"shelter":                  &sim.Shelter,
		"vaccination":              &sim.Vaccination,
	}
	for name, dst := range floats {
		if flags.Changed(name) {
			*dst, _ = flags.GetFloat64(name)
		}
	}
	if flags.Changed("lifespan") {
		sim.Lifespan, _ = flags.GetInt("lifespan")
	}
	if flags.Changed("max-rounds") {
		sim.MaxRounds, _ = flags.GetInt("max-rounds")
	}
	if flags.Changed("seed") {
		seed, _ := flags.GetUint64("seed")
		sim.Seed = &seed
	}
	if flags.Changed("interactive") {
		sim.Interactive, _ = flags.GetBool("interactive")
	}
	if flags.Changed("plot") {
		sim.Plot, _ = flags.GetBool("plot")
	}

	outputs := map[string]*string{
		"record":      &settings.Output.Record,
		"export":      &settings.Output.Export,
		"format":      &settings.Output.Format,
		"dot":         &settings.Output.DOT,
		"metrics-out": &settings.Output.MetricsOut,
	}
	for name, dst := range outputs {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	// An export named *.jsonl needs no --format.
	if flags.Changed("export") && !flags.Changed("format") && filepath.Ext(settings.Output.Export) == ".jsonl" {
		settings.Output.Format = string(export.FormatJSONL)
	}
	return nil
}

// simulateResult is the --json output of simulate.
type simulateResult struct {
	Graph      string             `json:"graph"`
	Summary    simulation.Summary `json:"summary"`
	RunID      string             `json:"run_id,omitempty"`
	Export     string             `json:"export,omitempty"`
	DOT        string             `json:"dot,omitempty"`
	MetricsOut string             `json:"metrics_out,omitempty"`
}

func runSimulate(ctx context.Context, cmd *cobra.Command, graphFile string, settings *config.DynpopConfig) (retErr error) {
	logger := newLogger(settings, cmd.ErrOrStderr())
	trace := logging.NewTraceLogger(settings.TraceDir(), settings.Logging.Level)
	defer trace.Close()

	g, err := graph.LoadGML(graphFile)
	if err != nil {
		return err
	}
	cfg := settings.Simulation
	if err := cfg.Validate(g); err != nil {
		return err
	}

	// last is the most recent round, for the DOT rendering.
	var last models.RoundSnapshot
	opts := []simulation.Option{
		simulation.WithLogger(logger),
		simulation.WithTrace(trace),
		simulation.WithObserver(func(snap models.RoundSnapshot) { last = snap }),
	}

	var reg *metrics.Registry
	if settings.Output.MetricsOut != "" {
		reg = metrics.NewRegistry()
		opts = append(opts, simulation.WithObserver(reg.Observer(cfg.Model)))
	}

	var (
		history  *store.SQLiteHistoryStore
		recorder *store.Recorder
	)
	if settings.Output.Record != "" {
		history, err = store.NewSQLiteHistoryStore(settings.Output.Record)
		if err != nil {
			return err
		}
		defer history.Close()
		// Rounds pulled after Ctrl-C are still recorded; the run then ends as stopped.
		recorder, err = store.NewRecorder(context.WithoutCancel(ctx), history, store.Run{Graph: filepath.Base(graphFile), Config: cfg})
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		opts = append(opts, simulation.WithObserver(recorder.Observe))
	}

	// abandon drops a run recorded before setup failed.
	abandon := func() {
		if recorder != nil {
			_ = history.DeleteRun(context.WithoutCancel(ctx), recorder.RunID())
		}
	}

	var exportFile *export.File
	if settings.Output.Export != "" {
		format, err := export.ParseFormat(settings.Output.Format)
		if err != nil {
			abandon()
			return err
		}
		if exportFile, err = export.Create(settings.Output.Export, format); err != nil {
			abandon()
			return err
		}
		defer func() {
			if err := exportFile.Close(); err != nil && retErr == nil {
				retErr = err
			}
		}()
		opts = append(opts, simulation.WithObserver(exportFile.Observe))
	}

	sim, err := simulation.New(g, cfg, opts...)
	if err != nil {
		abandon()
		return err
	}

	title := fmt.Sprintf("%s on %s", cfg.Model, filepath.Base(graphFile))
	start := time.Now()
	if cfg.Interactive {
		if err := tui.Run(ctx, tui.NewModel(title, sim.Rounds())); err != nil {
			return fmt.Errorf("viewer: %w", err)
		}
	} else {
		for range sim.Rounds() {
			if ctx.Err() != nil {
				break
			}
		}
	}
	summary := sim.Summary()
	elapsed := time.Since(start)

	var errs []error
	out := simulateResult{Graph: graphFile, Summary: summary}

	if recorder != nil {
		if err := recorder.Finish(summary); err != nil {
			errs = append(errs, fmt.Errorf("failed to record run: %w", err))
		} else {
			out.RunID = recorder.RunID()
		}
	}
	if exportFile != nil {
		out.Export = exportFile.Path()
	}
	if settings.Output.DOT != "" {
		dot := visualization.RenderDOT(g, last.Snapshot, fmt.Sprintf("%s, round %d", title, last.Round))
		if err := os.WriteFile(settings.Output.DOT, []byte(dot), 0644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write DOT: %w", err))
		} else {
			out.DOT = settings.Output.DOT
		}
	}
	if reg != nil {
		reg.RecordRun(summary, elapsed)
		if err := reg.WriteToTextfile(settings.Output.MetricsOut); err != nil {
			errs = append(errs, err)
		} else {
			out.MetricsOut = settings.Output.MetricsOut
		}
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
	} else {
		printSummary(cmd.OutOrStdout(), out)
		if cfg.Plot {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderPlot(plotTitle(cfg.Model), summary.NewPerRound, 0))
		}
	}

	if err := ctx.Err(); err != nil && !cfg.Interactive {
		errs = append(errs, fmt.Errorf("simulation interrupted at round %d: %w", summary.Rounds, err))
	}
	return errors.Join(errs...)
}

func plotTitle(m models.Model) string {
	if m == models.ModelEpidemic {
		return "New infections per round"
	}
	return "New adoptions per round"
}

func printSummary(w io.Writer, r simulateResult) {
	s := r.Summary
	fmt.Fprintf(w, "%s simulation on %s (%d nodes, seed %d)\n", s.Model, r.Graph, s.Nodes, s.Seed)
	fmt.Fprintf(w, "  ended after round %d: %s\n", s.Rounds, s.Reason)
	fmt.Fprintf(w, "  initiators: %d", s.Initiators)
	if s.Sheltered > 0 || s.Vaccinated > 0 || s.Clamped {
		fmt.Fprintf(w, "  sheltered: %d  vaccinated: %d", s.Sheltered, s.Vaccinated)
		if s.Clamped {
			fmt.Fprint(w, " (clamped)")
		}
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "  final:")
	for _, st := range models.AllStatuses {
		if n := s.Final[st]; n > 0 {
			fmt.Fprintf(w, " %s=%d", st, n)
		}
	}
	fmt.Fprintln(w)

	if s.Model == models.ModelEpidemic {
		fmt.Fprintf(w, "  peak infected: %d (round %d)\n", s.PeakInfected, s.PeakRound)
	}
	fmt.Fprintf(w, "  new %s: %d\n", newNoun(s.Model), s.TotalNew())

	if r.RunID != "" {
		fmt.Fprintf(w, "  recorded as run %s\n", r.RunID)
	}
	if r.Export != "" {
		fmt.Fprintf(w, "  rounds exported to %s\n", r.Export)
	}
	if r.DOT != "" {
		fmt.Fprintf(w, "  final state written to %s\n", r.DOT)
	}
	if r.MetricsOut != "" {
		fmt.Fprintf(w, "  metrics written to %s\n", r.MetricsOut)
	}
}

func newNoun(m models.Model) string {
	if m == models.ModelEpidemic {
		return "infections"
	}
	return "adoptions"
}
