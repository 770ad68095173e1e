package spreading

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// SeedPlan describes how the round-0 store is built.
type SeedPlan struct {
	Model       models.Model
	Initiators  []string
	Lifespan    int     // Days an initiator stays infected (epidemic only)
	Shelter     float64 // Fraction of all nodes to shelter
	Vaccination float64 // Fraction of all nodes to vaccinate
}

// Assignment reports which nodes received a non-default state at round 0.
type Assignment struct {
	Initiators []string
	Sheltered  []string
	Vaccinated []string

	// Clamped is set when the non-initiator pool was too small to honor the
	// requested shelter/vaccination counts.
	Clamped bool
}

// Initialize builds the round-0 store.
//
// Initiators become Adopted (cascade) or Infected for plan.Lifespan days
// (epidemic). From the remaining nodes, floor(Shelter*N) are drawn uniformly
// without replacement and sheltered, then floor(Vaccination*N) of the rest are
// vaccinated, N being the total node count. The draw uses rng only, so a
// seeded rng reproduces the same assignment.
func Initialize(g graph.Graph, plan SeedPlan, rng *rand.Rand, logger *slog.Logger) (*Store, Assignment, error) {
	s := NewStore(g)
	var asg Assignment

	isInitiator := make(map[string]bool, len(plan.Initiators))
	for _, id := range plan.Initiators {
		i, ok := s.index[id]
		if !ok {
			return nil, Assignment{}, fmt.Errorf("initiator %s is not a node of the graph", id)
		}
		if isInitiator[id] {
			continue
		}
		isInitiator[id] = true
		asg.Initiators = append(asg.Initiators, id)

		switch plan.Model {
		case models.ModelCascade:
			s.set(i, models.StateOf(models.Adopted))
		case models.ModelEpidemic:
			s.set(i, models.InfectedFor(plan.Lifespan))
		default:
			return nil, Assignment{}, fmt.Errorf("unknown model %q", plan.Model)
		}
	}

	pool := make([]int, 0, s.Len()-len(asg.Initiators))
	for i, id := range s.ids {
		if !isInitiator[id] {
			pool = append(pool, i)
		}
	}

	n := float64(s.Len())
	wantShelter := max(0, int(math.Floor(plan.Shelter*n)))
	wantVaccinated := max(0, int(math.Floor(plan.Vaccination*n)))

	nShelter := min(wantShelter, len(pool))
	nVaccinated := min(wantVaccinated, len(pool)-nShelter)
	if nShelter < wantShelter || nVaccinated < wantVaccinated {
		asg.Clamped = true
		if logger != nil {
			logger.Warn("not enough non-initiator nodes for requested shelter/vaccination",
				"pool", len(pool),
				"shelter_requested", wantShelter,
				"vaccination_requested", wantVaccinated,
				"shelter_assigned", nShelter,
				"vaccination_assigned", nVaccinated)
		}
	}

	// Partial Fisher-Yates: the first nShelter+nVaccinated slots of pool end
	// up as a uniform sample without replacement.
	picks := nShelter + nVaccinated
	for k := 0; k < picks; k++ {
		j := k + rng.IntN(len(pool)-k)
		pool[k], pool[j] = pool[j], pool[k]
	}

	for _, i := range pool[:nShelter] {
		s.set(i, models.StateOf(models.Sheltered))
		asg.Sheltered = append(asg.Sheltered, s.ids[i])
	}
	for _, i := range pool[nShelter:picks] {
		s.set(i, models.StateOf(models.Vaccinated))
		asg.Vaccinated = append(asg.Vaccinated, s.ids[i])
	}

	return s, asg, nil
}
