package mcp

import "time"

// SimulateInput defines the input for the dynpop_simulate tool. Unset
// parameters fall back to the server's configuration.
type SimulateInput struct {
	GraphFile   string   `json:"graph_file" jsonschema:"Path to a GML graph file (relative to the server root)"`
	Action      string   `json:"action,omitempty" jsonschema:"Model to run: 'cascade' or 'covid'"`
	Initiators  []string `json:"initiators" jsonschema:"Node IDs that start adopted/infected"`
	Threshold   *float64 `json:"threshold,omitempty" jsonschema:"Cascade adoption threshold (0.0-1.0)"`
	Probability *float64 `json:"probability_of_infection,omitempty" jsonschema:"Per-contact infection probability (0.0-1.0)"`
	Lifespan    *int     `json:"lifespan,omitempty" jsonschema:"Rounds an infection lasts"`
	Shelter     *float64 `json:"shelter,omitempty" jsonschema:"Fraction of non-initiators sheltered (0.0-1.0)"`
	Vaccination *float64 `json:"vaccination,omitempty" jsonschema:"Fraction of non-initiators vaccinated (0.0-1.0)"`
	Seed        *uint64  `json:"seed,omitempty" jsonschema:"Random seed for a reproducible run"`
	MaxRounds   *int     `json:"max_rounds,omitempty" jsonschema:"Round cap (0 derives it from the graph)"`
	Rounds      bool     `json:"rounds,omitempty" jsonschema:"Include per-round counts in the result"`
	FinalGraph  bool     `json:"final_graph,omitempty" jsonschema:"Include the final node states as a JSON graph"`
	Record      bool     `json:"record,omitempty" jsonschema:"Record the run in the history store"`
	ExportPath  string   `json:"export_path,omitempty" jsonschema:"Write every round to this file"`
	Format      string   `json:"format,omitempty" jsonschema:"Export format: 'arrow' or 'jsonl'"`
}

// SimulateOutput defines the output for the dynpop_simulate tool.
type SimulateOutput struct {
	RunID      string                 `json:"run_id,omitempty" jsonschema:"History ID when the run was recorded"`
	Summary    RunSummary             `json:"summary" jsonschema:"Outcome of the run"`
	Rounds     []RoundCounts          `json:"rounds,omitempty" jsonschema:"Per-round counts when requested"`
	FinalGraph map[string]interface{} `json:"final_graph,omitempty" jsonschema:"Final node states when requested"`
	ExportPath string                 `json:"export_path,omitempty" jsonschema:"File the rounds were exported to"`
	Message    string                 `json:"message" jsonschema:"Human-readable result message"`
}

// RunSummary is the MCP view of simulation.Summary.
type RunSummary struct {
	Model        string         `json:"model"`
	Seed         uint64         `json:"seed"`
	Nodes        int            `json:"nodes"`
	Rounds       int            `json:"rounds"`
	Reason       string         `json:"reason"`
	Initiators   int            `json:"initiators"`
	Sheltered    int            `json:"sheltered"`
	Vaccinated   int            `json:"vaccinated"`
	Final        map[string]int `json:"final"`
	NewPerRound  []int          `json:"new_per_round"`
	TotalNew     int            `json:"total_new"`
	PeakInfected int            `json:"peak_infected"`
	PeakRound    int            `json:"peak_round"`
}

// RoundCounts summarizes one round.
type RoundCounts struct {
	Round          int            `json:"round"`
	NewTransitions int            `json:"new_transitions"`
	Recoveries     int            `json:"recoveries"`
	Counts         map[string]int `json:"counts"`
}

// GraphInfoInput defines the input for the dynpop_graph_info tool.
type GraphInfoInput struct {
	GraphFile string `json:"graph_file" jsonschema:"Path to a GML graph file (relative to the server root)"`
	Format    string `json:"format,omitempty" jsonschema:"Optional rendering: 'dot' or 'json'"`
}

// GraphInfoOutput defines the output for the dynpop_graph_info tool.
type GraphInfoOutput struct {
	Nodes     int         `json:"nodes"`
	Edges     int         `json:"edges"`
	Directed  bool        `json:"directed"`
	MinDegree int         `json:"min_degree"`
	MaxDegree int         `json:"max_degree"`
	AvgDegree float64     `json:"avg_degree"`
	Isolated  int         `json:"isolated"`
	Format    string      `json:"format,omitempty"`
	Graph     interface{} `json:"graph,omitempty" jsonschema:"Rendered graph when a format was requested"`
}

// RunsInput defines the input for the dynpop_runs tool.
type RunsInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"Show one run instead of listing"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum runs to list (default 20)"`
}

// RunsOutput defines the output for the dynpop_runs tool.
type RunsOutput struct {
	Runs   []RunListItem `json:"runs,omitempty" jsonschema:"Recorded runs, newest first"`
	Run    *RunDetail    `json:"run,omitempty" jsonschema:"The requested run"`
	Count  int           `json:"count" jsonschema:"Number of runs returned"`
	Stored string        `json:"stored" jsonschema:"Where the history lives: 'sqlite' or 'memory'"`
}

// RunListItem provides a list view of a recorded run.
type RunListItem struct {
	ID        string    `json:"id"`
	Graph     string    `json:"graph"`
	Model     string    `json:"model"`
	Rounds    int       `json:"rounds"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RunDetail is a recorded run with its per-round counts.
type RunDetail struct {
	RunListItem
	Summary *RunSummary   `json:"summary,omitempty"`
	Rounds  []RoundCounts `json:"rounds"`
}
