package spreading

import (
	"math/rand/v2"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// EpidemicRule is the infection/recovery rule.
//
// Each Susceptible node runs one Bernoulli(Probability) trial per neighbor
// that was Infected in the previous round, stopping at the first success, so
// its chance of infection is 1-(1-p)^k for k infected neighbors. Infected
// nodes count down and recover when the counter would reach zero.
type EpidemicRule struct {
	Probability float64
	Lifespan    int

	rng *rand.Rand
}

// NewEpidemicRule creates an epidemic rule drawing from rng. The rule is the
// only consumer of rng during a round, so a seeded rng gives a reproducible run.
func NewEpidemicRule(probability float64, lifespan int, rng *rand.Rand) *EpidemicRule {
	return &EpidemicRule{Probability: probability, Lifespan: lifespan, rng: rng}
}

// Model returns models.ModelEpidemic.
func (r *EpidemicRule) Model() models.Model { return models.ModelEpidemic }

// Step applies one round of infection and recovery.
func (r *EpidemicRule) Step(g graph.Graph, cur *Store) (*Store, RoundStats) {
	next := cur.clone()
	var stats RoundStats

	for i, st := range cur.states {
		switch st.Status {
		case models.Sheltered, models.Vaccinated, models.Recovered:
			// absorbing
		case models.Infected:
			left := st.DaysRemaining - 1
			if left <= 0 {
				next.set(i, models.StateOf(models.Recovered))
				stats.Recoveries++
			} else {
				next.set(i, models.InfectedFor(left))
			}
			stats.Changed++
		case models.Susceptible:
			if r.catches(g, cur, cur.ids[i]) {
				next.set(i, models.InfectedFor(r.Lifespan))
				stats.NewInfections++
				stats.Changed++
			}
		case models.Adopted:
			// not produced by this rule
		}
	}

	return next, stats
}

// catches runs the per-neighbor trials for a Susceptible node against cur.
func (r *EpidemicRule) catches(g graph.Graph, cur *Store, id string) bool {
	for _, n := range g.Neighbors(id) {
		j, ok := cur.index[n]
		if !ok || cur.states[j].Status != models.Infected {
			continue
		}
		if r.rng.Float64() < r.Probability {
			return true
		}
	}
	return false
}
