package spreading

import (
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// CascadeRule is the threshold adoption rule: a Susceptible node adopts once
// the fraction of its neighbors that have adopted reaches Threshold.
type CascadeRule struct {
	Threshold float64
}

// NewCascadeRule creates a cascade rule.
func NewCascadeRule(threshold float64) *CascadeRule {
	return &CascadeRule{Threshold: threshold}
}

// Model returns models.ModelCascade.
func (r *CascadeRule) Model() models.Model { return models.ModelCascade }

// Step applies one round of threshold adoption.
//
// A node without neighbors has an adopted fraction of 0. Sheltered and
// Vaccinated neighbors count toward the denominator but never adopt.
func (r *CascadeRule) Step(g graph.Graph, cur *Store) (*Store, RoundStats) {
	next := cur.clone()
	var stats RoundStats

	for i, st := range cur.states {
		switch st.Status {
		case models.Susceptible:
			if r.adoptedFraction(g, cur, cur.ids[i]) >= r.Threshold {
				next.set(i, models.StateOf(models.Adopted))
				stats.NewAdoptions++
				stats.Changed++
			}
		case models.Adopted, models.Sheltered, models.Vaccinated:
			// absorbing
		case models.Infected, models.Recovered:
			// not produced by this rule
		}
	}

	return next, stats
}

// adoptedFraction reads only cur, never the store being built.
func (r *CascadeRule) adoptedFraction(g graph.Graph, cur *Store, id string) float64 {
	neighbors := g.Neighbors(id)
	if len(neighbors) == 0 {
		return 0
	}
	adopted := 0
	for _, n := range neighbors {
		if j, ok := cur.index[n]; ok && cur.states[j].Status == models.Adopted {
			adopted++
		}
	}
	return float64(adopted) / float64(len(neighbors))
}
