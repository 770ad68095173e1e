package simulation

import (
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/spreading"
)

// Reason says why a run ended.
type Reason string

const (
	// ReasonFixedPoint means a step changed no node.
	ReasonFixedPoint Reason = "fixed_point"
	// ReasonRoundCap means the round cap was reached first.
	ReasonRoundCap Reason = "round_cap"
	// ReasonStopped means the consumer stopped pulling rounds.
	ReasonStopped Reason = "stopped"
)

// Summary describes a finished (or stopped) run.
type Summary struct {
	Model  models.Model `json:"model"`
	Seed   uint64       `json:"seed"`
	Nodes  int          `json:"nodes"`
	Rounds int          `json:"rounds"` // index of the last round produced
	Reason Reason       `json:"reason"`

	Initiators int  `json:"initiators"`
	Sheltered  int  `json:"sheltered"`
	Vaccinated int  `json:"vaccinated"`
	Clamped    bool `json:"clamped,omitempty"`

	Final map[models.Status]int `json:"final"`

	// NewPerRound[i] is the number of new adoptions or infections in
	// round i+1.
	NewPerRound []int `json:"new_per_round"`

	PeakInfected int `json:"peak_infected"`
	PeakRound    int `json:"peak_round"`
}

// TotalNew returns the sum of NewPerRound.
func (s Summary) TotalNew() int {
	total := 0
	for _, n := range s.NewPerRound {
		total += n
	}
	return total
}

// Result is everything Run collects.
type Result struct {
	Config  Config                 `json:"config"`
	Summary Summary                `json:"summary"`
	Rounds  []models.RoundSnapshot `json:"rounds"`
}

// Final returns the last round, or a zero snapshot when Rounds is empty.
func (r *Result) Final() models.RoundSnapshot {
	if len(r.Rounds) == 0 {
		return models.RoundSnapshot{}
	}
	return r.Rounds[len(r.Rounds)-1]
}

// tally accumulates a Summary while rounds are produced.
type tally struct {
	sum Summary
}

func newTally(cfg Config, seed uint64, nodes int, asg spreading.Assignment) *tally {
	return &tally{sum: Summary{
		Model:       cfg.Model,
		Seed:        seed,
		Nodes:       nodes,
		Initiators:  len(asg.Initiators),
		Sheltered:   len(asg.Sheltered),
		Vaccinated:  len(asg.Vaccinated),
		Clamped:     asg.Clamped,
		NewPerRound: []int{},
	}}
}

func (t *tally) observe(snap models.RoundSnapshot) {
	if snap.Round > 0 {
		t.sum.NewPerRound = append(t.sum.NewPerRound, snap.NewTransitions)
	}
	if n := snap.Count(models.Infected); n > t.sum.PeakInfected {
		t.sum.PeakInfected = n
		t.sum.PeakRound = snap.Round
	}
	t.sum.Rounds = snap.Round
	t.sum.Final = snap.Counts()
}

func (t *tally) finish(reason Reason) Summary {
	t.sum.Reason = reason
	return t.sum
}
