package simulation

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/logging"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

func seedOf(v uint64) *uint64 { return &v }

func cascadeConfig(threshold float64, initiators ...string) Config {
	cfg := DefaultConfig()
	cfg.Threshold = threshold
	cfg.Initiators = initiators
	return cfg
}

func covidConfig(p float64, lifespan int, initiators ...string) Config {
	cfg := DefaultConfig()
	cfg.Model = models.ModelEpidemic
	cfg.Probability = p
	cfg.Lifespan = lifespan
	cfg.Initiators = initiators
	cfg.Seed = seedOf(42)
	return cfg
}

func TestCascadeOnFourCycle(t *testing.T) {
	result := RunScenario(t, Scenario{
		Name:   "four-cycle",
		Edges:  Ring("0", "1", "2", "3"),
		Config: cascadeConfig(0.5, "0"),
	})

	AssertRoundCount(t, result, 3)
	AssertReason(t, result, ReasonFixedPoint)
	AssertStatusSet(t, result, 0, models.Adopted, "0")
	AssertStatusSet(t, result, 1, models.Adopted, "0", "1", "3")
	AssertStatusSet(t, result, 2, models.Adopted, "0", "1", "2", "3")
	AssertMonotoneAdoption(t, result)
	AssertConservation(t, result, 4)

	if got := result.Summary.NewPerRound; len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Errorf("NewPerRound = %v, want [2 1]", got)
	}
	if result.Rounds[0].NewTransitions != 0 {
		t.Errorf("round 0 NewTransitions = %d, want 0", result.Rounds[0].NewTransitions)
	}
}

func TestEpidemicOnTwoNodes(t *testing.T) {
	result := RunScenario(t, Scenario{
		Name:   "two-nodes",
		Edges:  []EdgeSpec{{Source: "0", Target: "1"}},
		Config: covidConfig(1.0, 2, "0"),
	})

	AssertRoundCount(t, result, 4)
	AssertReason(t, result, ReasonFixedPoint)

	recovered := models.StateOf(models.Recovered)
	want := []struct{ n0, n1 models.NodeState }{
		{models.InfectedFor(2), models.StateOf(models.Susceptible)},
		{models.InfectedFor(1), models.InfectedFor(2)},
		{recovered, models.InfectedFor(1)},
		{recovered, recovered},
	}
	for round, w := range want {
		AssertStatusAt(t, result, round, "0", w.n0)
		AssertStatusAt(t, result, round, "1", w.n1)
	}
	AssertAbsorbing(t, result)

	sum := result.Summary
	if sum.PeakInfected != 2 || sum.PeakRound != 1 {
		t.Errorf("peak = %d at round %d, want 2 at round 1", sum.PeakInfected, sum.PeakRound)
	}
	if sum.TotalNew() != 1 {
		t.Errorf("TotalNew = %d, want 1", sum.TotalNew())
	}
	if sum.Final[models.Recovered] != 2 || sum.Final[models.Infected] != 0 {
		t.Errorf("Final = %v", sum.Final)
	}
}

func TestIsolatedInitiator(t *testing.T) {
	result := RunScenario(t, Scenario{
		Name:   "isolated",
		Nodes:  []string{"a"},
		Config: cascadeConfig(0.5, "a"),
	})

	AssertRoundCount(t, result, 1)
	AssertReason(t, result, ReasonFixedPoint)
	AssertStatusSet(t, result, 0, models.Adopted, "a")
}

func TestInvalidInitiator(t *testing.T) {
	sc := Scenario{Edges: Ring("0", "1", "2")}
	g, err := sc.Graph()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		initiators []string
	}{
		{"absent node", []string{"7"}},
		{"one absent among valid", []string{"0", "nope"}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := New(g, cascadeConfig(0.5, tt.initiators...))
			if !errors.Is(err, ErrInvalidInitiator) {
				t.Fatalf("New err = %v, want ErrInvalidInitiator", err)
			}
			if sim != nil {
				t.Error("New returned a simulator alongside an error")
			}
		})
	}
}

func TestRoundCap(t *testing.T) {
	cfg := cascadeConfig(0.5, "0")
	cfg.MaxRounds = 1
	result := RunScenario(t, Scenario{Edges: Ring("0", "1", "2", "3"), Config: cfg})

	AssertRoundCount(t, result, 2)
	AssertReason(t, result, ReasonRoundCap)
	if result.Summary.Rounds != 1 {
		t.Errorf("Summary.Rounds = %d, want 1", result.Summary.Rounds)
	}
}

func TestCapFor(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		n    int
		want int
	}{
		{"explicit", Config{Model: models.ModelCascade, MaxRounds: 7}, 100, 7},
		{"cascade derived", Config{Model: models.ModelCascade}, 12, 12},
		{"covid derived", Config{Model: models.ModelEpidemic, Lifespan: 3}, 12, 37},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.CapFor(tt.n); got != tt.want {
				t.Errorf("CapFor(%d) = %d, want %d", tt.n, got, tt.want)
			}
		})
	}
}

// ringScenario is a larger epidemic scenario with enough randomness to
// make accidental agreement between runs unlikely.
func ringScenario(seed uint64) Scenario {
	ids := make([]string, 40)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	edges := Ring(ids...)
	for i := 0; i < len(ids); i += 3 {
		edges = append(edges, EdgeSpec{Source: ids[i], Target: ids[(i*7+5)%len(ids)]})
	}
	cfg := covidConfig(0.4, 3, "0", "20")
	cfg.Shelter = 0.1
	cfg.Vaccination = 0.1
	cfg.Seed = seedOf(seed)
	return Scenario{Name: "ring", Edges: edges, Config: cfg}
}

func TestDeterministicWithSeed(t *testing.T) {
	a := RunScenario(t, ringScenario(7))
	b := RunScenario(t, ringScenario(7))
	AssertSameRun(t, a, b)

	if a.Summary.Seed != 7 {
		t.Errorf("Summary.Seed = %d, want 7", a.Summary.Seed)
	}
	if a.Summary.Sheltered != 4 || a.Summary.Vaccinated != 4 {
		t.Errorf("sheltered/vaccinated = %d/%d, want 4/4", a.Summary.Sheltered, a.Summary.Vaccinated)
	}
	AssertAbsorbing(t, a)
	AssertConservation(t, a, 40)
}

func TestRoundsIsRestartable(t *testing.T) {
	sc := ringScenario(3)
	g, err := sc.Graph()
	if err != nil {
		t.Fatal(err)
	}
	sim, err := New(g, sc.Config)
	if err != nil {
		t.Fatal(err)
	}

	first, err := sim.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := sim.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	AssertSameRun(t, first, second)
	if first.Summary.Reason != second.Summary.Reason {
		t.Errorf("reasons differ: %s vs %s", first.Summary.Reason, second.Summary.Reason)
	}
}

func TestUnseededRunRecordsSeed(t *testing.T) {
	sc := ringScenario(0)
	sc.Config.Seed = nil
	g, err := sc.Graph()
	if err != nil {
		t.Fatal(err)
	}
	sim, err := New(g, sc.Config)
	if err != nil {
		t.Fatal(err)
	}
	first, err := sim.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	replay := sc.Config
	replay.Seed = seedOf(first.Summary.Seed)
	again := RunScenario(t, Scenario{Edges: sc.Edges, Config: replay})
	AssertSameRun(t, first, again)
}

func TestConsumerCanStopEarly(t *testing.T) {
	sc := Scenario{Edges: Ring("0", "1", "2", "3", "4", "5"), Config: cascadeConfig(0.5, "0")}
	g, err := sc.Graph()
	if err != nil {
		t.Fatal(err)
	}
	sim, err := New(g, sc.Config)
	if err != nil {
		t.Fatal(err)
	}

	seen := 0
	for snap := range sim.Rounds() {
		seen++
		if snap.Round == 1 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("consumed %d rounds, want 2", seen)
	}
	if sim.Summary().Reason != ReasonStopped {
		t.Errorf("Reason = %s, want %s", sim.Summary().Reason, ReasonStopped)
	}
}

func TestObserverSeesEveryRound(t *testing.T) {
	var rounds []int
	result := RunScenario(t, Scenario{
		Edges:  Ring("0", "1", "2", "3"),
		Config: cascadeConfig(0.5, "0"),
		Options: []Option{WithObserver(func(s models.RoundSnapshot) {
			rounds = append(rounds, s.Round)
		})},
	})

	if len(rounds) != len(result.Rounds) {
		t.Fatalf("observer saw %v, run produced %d rounds", rounds, len(result.Rounds))
	}
	for i, r := range rounds {
		if r != i {
			t.Errorf("observer round %d = %d", i, r)
		}
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	sc := Scenario{Edges: Ring("0", "1", "2"), Config: cascadeConfig(0.5, "0")}
	g, err := sc.Graph()
	if err != nil {
		t.Fatal(err)
	}
	sim, err := New(g, sc.Config)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}
}

func TestTraceWritesOneLinePerRound(t *testing.T) {
	dir := t.TempDir()
	tl := logging.NewTraceLogger(dir, "trace")
	if tl == nil {
		t.Fatal("NewTraceLogger returned nil at trace level")
	}

	result := RunScenario(t, Scenario{
		Edges:   Ring("0", "1", "2", "3"),
		Config:  cascadeConfig(0.5, "0"),
		Options: []Option{WithTrace(tl)},
	})
	tl.Close()

	f, err := os.Open(filepath.Join(dir, logging.TraceFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("bad trace line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, entry)
	}

	if len(lines) != len(result.Rounds) {
		t.Fatalf("trace has %d lines, want %d", len(lines), len(result.Rounds))
	}
	if _, ok := lines[0]["transitions"]; ok {
		t.Error("round 0 should carry no transitions")
	}
	changes, ok := lines[1]["transitions"].([]any)
	if !ok || len(changes) != 2 {
		t.Errorf("round 1 transitions = %v, want 2 entries", lines[1]["transitions"])
	}
}
