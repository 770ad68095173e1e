package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/export"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/pathutil"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/ratelimit"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/store"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/visualization"
)

// registerTools registers all dynpop tools with the MCP server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "dynpop_simulate",
		Description: "Run a cascade or covid simulation on a GML graph and return its summary. Optionally record the run or export every round.",
	}, s.handleDynpopSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "dynpop_graph_info",
		Description: "Load a GML graph and report its size and degree statistics, optionally rendered as DOT or JSON",
	}, s.handleDynpopGraphInfo)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "dynpop_runs",
		Description: "List recorded simulation runs, or show one run with its per-round counts",
	}, s.handleDynpopRuns)
}

// loadGraph resolves a client path inside the allowed directories and
// parses it.
func (s *Server) loadGraph(path string) (*graph.AdjacencyGraph, string, error) {
	resolved, err := pathutil.Resolve(path, s.allowedDirs)
	if err != nil {
		return nil, "", err
	}
	g, err := graph.LoadGML(resolved)
	if err != nil {
		return nil, "", err
	}
	return g, resolved, nil
}

// simulationConfig overlays the parameters a client set on the server
// defaults.
func (s *Server) simulationConfig(args SimulateInput) simulation.Config {
	cfg := s.settings.Simulation
	cfg.Interactive = false
	cfg.Plot = false
	cfg.Initiators = args.Initiators

	if args.Action != "" {
		cfg.Model = models.Model(args.Action)
	}
	if args.Threshold != nil {
		cfg.Threshold = *args.Threshold
	}
	if args.Probability != nil {
		cfg.Probability = *args.Probability
	}
	if args.Lifespan != nil {
		cfg.Lifespan = *args.Lifespan
	}
	if args.Shelter != nil {
		cfg.Shelter = *args.Shelter
	}
	if args.Vaccination != nil {
		cfg.Vaccination = *args.Vaccination
	}
	if args.MaxRounds != nil {
		cfg.MaxRounds = *args.MaxRounds
	}
	if args.Seed != nil {
		seed := *args.Seed
		cfg.Seed = &seed
	}
	return cfg
}

// handleDynpopSimulate implements the dynpop_simulate tool.
func (s *Server) handleDynpopSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		scope := constants.ScopeLocal
		if args.Record {
			scope = constants.ScopeGlobal
		}
		s.auditTool("dynpop_simulate", start, retErr, sanitizeToolParams(map[string]interface{}{
			"graph_file":               args.GraphFile,
			"action":                   args.Action,
			"initiators":               args.Initiators,
			"threshold":                args.Threshold,
			"probability_of_infection": args.Probability,
			"lifespan":                 args.Lifespan,
			"shelter":                  args.Shelter,
			"vaccination":              args.Vaccination,
			"seed":                     args.Seed,
			"max_rounds":               args.MaxRounds,
			"rounds":                   args.Rounds,
			"final_graph":              args.FinalGraph,
			"record":                   args.Record,
			"export_path":              args.ExportPath,
			"format":                   args.Format,
		}), scope)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "dynpop_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	g, graphPath, err := s.loadGraph(args.GraphFile)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	cfg := s.simulationConfig(args)
	if err := cfg.Validate(g); err != nil {
		return nil, SimulateOutput{}, err
	}

	opts := []simulation.Option{simulation.WithLogger(s.logger)}
	if s.metrics != nil {
		opts = append(opts, simulation.WithObserver(s.metrics.Observer(cfg.Model)))
	}

	var recorder *store.Recorder
	if args.Record {
		recorder, err = store.NewRecorder(ctx, s.history, store.Run{
			Graph:  filepath.Base(graphPath),
			Config: cfg,
		})
		if err != nil {
			return nil, SimulateOutput{}, fmt.Errorf("failed to record run: %w", err)
		}
		opts = append(opts, simulation.WithObserver(recorder.Observe))
	}

	// abandon drops a half-recorded run.
	abandon := func() {
		if recorder != nil {
			_ = s.history.DeleteRun(context.WithoutCancel(ctx), recorder.RunID())
		}
	}

	var exportFile *export.File
	if args.ExportPath != "" {
		format := args.Format
		if format == "" {
			format = s.settings.Output.Format
		}
		f, err := export.ParseFormat(format)
		if err != nil {
			abandon()
			return nil, SimulateOutput{}, err
		}
		exportPath, err := pathutil.Resolve(args.ExportPath, s.allowedDirs)
		if err != nil {
			abandon()
			return nil, SimulateOutput{}, err
		}
		if exportFile, err = export.Create(exportPath, f); err != nil {
			abandon()
			return nil, SimulateOutput{}, err
		}
		opts = append(opts, simulation.WithObserver(exportFile.Observe))
	}

	sim, err := simulation.New(g, cfg, opts...)
	if err != nil {
		if exportFile != nil {
			exportFile.Close()
		}
		abandon()
		return nil, SimulateOutput{}, err
	}

	runStart := time.Now()
	result, runErr := sim.Run(ctx)
	if exportFile != nil {
		if err := exportFile.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		abandon()
		return nil, SimulateOutput{}, runErr
	}
	if s.metrics != nil {
		s.metrics.RecordRun(result.Summary, time.Since(runStart))
	}

	out := SimulateOutput{Summary: toRunSummary(result.Summary)}
	if recorder != nil {
		if err := recorder.Finish(result.Summary); err != nil {
			return nil, SimulateOutput{}, fmt.Errorf("failed to record run: %w", err)
		}
		out.RunID = recorder.RunID()
	}
	if exportFile != nil {
		out.ExportPath = exportFile.Path()
	}
	if args.Rounds {
		out.Rounds = make([]RoundCounts, len(result.Rounds))
		for i, snap := range result.Rounds {
			out.Rounds[i] = RoundCounts{
				Round:          snap.Round,
				NewTransitions: snap.NewTransitions,
				Recoveries:     snap.Recoveries,
				Counts:         statusCounts(snap.Counts()),
			}
		}
	}
	if args.FinalGraph {
		out.FinalGraph = visualization.RenderJSON(g, result.Final().Snapshot)
	}

	out.Message = fmt.Sprintf("%s run on %d nodes ended after round %d (%s)",
		result.Summary.Model, result.Summary.Nodes, result.Summary.Rounds, result.Summary.Reason)
	return nil, out, nil
}

// handleDynpopGraphInfo implements the dynpop_graph_info tool.
func (s *Server) handleDynpopGraphInfo(ctx context.Context, req *sdk.CallToolRequest, args GraphInfoInput) (_ *sdk.CallToolResult, _ GraphInfoOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("dynpop_graph_info", start, retErr, sanitizeToolParams(map[string]interface{}{
			"graph_file": args.GraphFile,
			"format":     args.Format,
		}), constants.ScopeLocal)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "dynpop_graph_info"); err != nil {
		return nil, GraphInfoOutput{}, err
	}

	g, graphPath, err := s.loadGraph(args.GraphFile)
	if err != nil {
		return nil, GraphInfoOutput{}, err
	}

	stats := graph.ComputeStats(g)
	out := GraphInfoOutput{
		Nodes:     stats.Nodes,
		Edges:     stats.Edges,
		Directed:  stats.Directed,
		MinDegree: stats.MinDegree,
		MaxDegree: stats.MaxDegree,
		AvgDegree: stats.AvgDegree,
		Isolated:  stats.Isolated,
		Format:    args.Format,
	}

	switch visualization.Format(args.Format) {
	case "":
	case visualization.FormatDOT:
		out.Graph = visualization.RenderDOT(g, models.Snapshot{}, filepath.Base(graphPath))
	case visualization.FormatJSON:
		out.Graph = visualization.RenderJSON(g, models.Snapshot{})
	default:
		return nil, GraphInfoOutput{}, fmt.Errorf("unsupported format %q (use 'dot' or 'json')", args.Format)
	}

	return nil, out, nil
}

// handleDynpopRuns implements the dynpop_runs tool.
func (s *Server) handleDynpopRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("dynpop_runs", start, retErr, sanitizeToolParams(map[string]interface{}{
			"run_id": args.RunID,
			"limit":  args.Limit,
		}), constants.ScopeGlobal)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "dynpop_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	out := RunsOutput{Stored: s.historyKind}

	if args.RunID != "" {
		run, err := s.history.GetRun(ctx, args.RunID)
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				return nil, RunsOutput{}, fmt.Errorf("run not found: %s", args.RunID)
			}
			return nil, RunsOutput{}, err
		}
		rounds, err := s.history.Rounds(ctx, run.ID)
		if err != nil {
			return nil, RunsOutput{}, err
		}

		detail := &RunDetail{RunListItem: toRunListItem(*run), Rounds: make([]RoundCounts, len(rounds))}
		if run.Summary != nil {
			sum := toRunSummary(*run.Summary)
			detail.Summary = &sum
		}
		for i, rec := range rounds {
			detail.Rounds[i] = RoundCounts{
				Round:          rec.Round,
				NewTransitions: rec.NewTransitions,
				Recoveries:     rec.Recoveries,
				Counts:         statusCounts(rec.Counts),
			}
		}
		out.Run = detail
		out.Count = 1
		return nil, out, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = constants.MaxRunsListed
	}
	runs, err := s.history.ListRuns(ctx, limit)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	out.Runs = make([]RunListItem, len(runs))
	for i, run := range runs {
		out.Runs[i] = toRunListItem(run)
	}
	out.Count = len(runs)
	return nil, out, nil
}

func toRunListItem(run store.Run) RunListItem {
	item := RunListItem{
		ID:        run.ID,
		Graph:     run.Graph,
		Model:     string(run.Model),
		CreatedAt: run.CreatedAt,
	}
	if run.Summary != nil {
		item.Rounds = run.Summary.Rounds
		item.Reason = string(run.Summary.Reason)
	}
	return item
}

func toRunSummary(sum simulation.Summary) RunSummary {
	newPerRound := sum.NewPerRound
	if newPerRound == nil {
		newPerRound = []int{}
	}
	return RunSummary{
		Model:        string(sum.Model),
		Seed:         sum.Seed,
		Nodes:        sum.Nodes,
		Rounds:       sum.Rounds,
		Reason:       string(sum.Reason),
		Initiators:   sum.Initiators,
		Sheltered:    sum.Sheltered,
		Vaccinated:   sum.Vaccinated,
		Final:        statusCounts(sum.Final),
		NewPerRound:  newPerRound,
		TotalNew:     sum.TotalNew(),
		PeakInfected: sum.PeakInfected,
		PeakRound:    sum.PeakRound,
	}
}

// statusCounts keys counts by status name for JSON clients.
func statusCounts(counts map[models.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for st, n := range counts {
		out[st.String()] = n
	}
	return out
}
