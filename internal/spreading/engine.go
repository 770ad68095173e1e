// Package spreading implements the per-round transition rules of the two
// spreading processes. A rule reads the complete round-t store and writes a
// fresh round-t+1 store, so a node changing state in a round can never
// influence another node's decision in that same round (synchronous update).
package spreading

import (
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// Rule advances a store by one round.
type Rule interface {
	// Model identifies the process the rule implements.
	Model() models.Model

	// Step computes round t+1 from cur (round t). cur is not modified.
	Step(g graph.Graph, cur *Store) (*Store, RoundStats)
}

// RoundStats counts what happened in a single round.
type RoundStats struct {
	// Changed is the number of nodes whose state differs from the previous
	// round, including Infected countdowns. Zero means a fixed point.
	Changed int

	NewAdoptions  int
	NewInfections int
	Recoveries    int
}

// NewTransitions returns the number of nodes that adopted or became infected.
func (s RoundStats) NewTransitions() int {
	return s.NewAdoptions + s.NewInfections
}
