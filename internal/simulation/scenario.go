package simulation

import (
	"context"
	"testing"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
)

// Scenario defines a complete simulation experiment over a small
// hand-built graph.
type Scenario struct {
	Name     string
	Directed bool
	Nodes    []string
	Edges    []EdgeSpec
	Config   Config
	Options  []Option
}

// EdgeSpec defines an edge of the scenario graph.
type EdgeSpec struct {
	Source string
	Target string
}

// Graph builds the scenario graph. Nodes referenced only by edges are
// added after the explicit Nodes, in first-seen order.
func (sc Scenario) Graph() (*graph.AdjacencyGraph, error) {
	g := graph.New(sc.Directed)
	for _, id := range sc.Nodes {
		g.AddNode(id)
	}
	for _, e := range sc.Edges {
		g.AddNode(e.Source)
		g.AddNode(e.Target)
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Ring returns the edges of a cycle through ids in order.
func Ring(ids ...string) []EdgeSpec {
	edges := make([]EdgeSpec, len(ids))
	for i := range ids {
		edges[i] = EdgeSpec{Source: ids[i], Target: ids[(i+1)%len(ids)]}
	}
	return edges
}

// RunScenario builds and runs sc, failing t on any error.
func RunScenario(t *testing.T, sc Scenario) *Result {
	t.Helper()

	g, err := sc.Graph()
	if err != nil {
		t.Fatalf("RunScenario(%s): building graph: %v", sc.Name, err)
	}
	sim, err := New(g, sc.Config, sc.Options...)
	if err != nil {
		t.Fatalf("RunScenario(%s): New: %v", sc.Name, err)
	}
	res, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("RunScenario(%s): Run: %v", sc.Name, err)
	}
	return res
}
