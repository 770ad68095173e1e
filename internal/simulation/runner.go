package simulation

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/logging"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/spreading"
)

// Observer receives every round a simulator produces, before the consumer
// of Rounds sees it.
type Observer func(models.RoundSnapshot)

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand makes the simulator draw from r instead of a generator seeded
// from Config.Seed. Replays from Rounds then continue r's stream rather
// than repeating the first run.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithLogger sets the operational logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTrace enables the JSONL round trace. A nil trace logger is ignored.
func WithTrace(tl *logging.TraceLogger) Option {
	return func(s *Simulator) { s.trace = tl }
}

// WithObserver adds an observer. Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Simulator drives one configured run over a graph.
//
// It is not safe for concurrent use. Each call to Rounds starts the run
// from round 0 again.
type Simulator struct {
	g    graph.Graph
	cfg  Config
	seed uint64

	rng       *rand.Rand
	logger    *slog.Logger
	trace     *logging.TraceLogger
	observers []Observer

	pending *run
	summary Summary
}

// run is the mutable state of one pass over the rounds.
type run struct {
	store *spreading.Store
	rule  spreading.Rule
	asg   spreading.Assignment
}

// New validates cfg against g and prepares round 0. Nothing is kept when
// validation or initialization fails.
func New(g graph.Graph, cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(g); err != nil {
		return nil, err
	}

	s := &Simulator{
		g:      g,
		cfg:    cfg,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Seed != nil {
		s.seed = *cfg.Seed
	} else {
		s.seed = rand.Uint64()
	}

	r, err := s.begin()
	if err != nil {
		return nil, err
	}
	s.pending = r
	return s, nil
}

// Config returns the validated configuration.
func (s *Simulator) Config() Config { return s.cfg }

// Seed returns the seed the run draws from. It is meaningless when the
// simulator was given its generator through WithRand.
func (s *Simulator) Seed() uint64 { return s.seed }

// Summary returns the summary of the most recent pass over Rounds.
func (s *Simulator) Summary() Summary { return s.summary }

// begin builds a fresh round-0 store and rule.
func (s *Simulator) begin() (*run, error) {
	rng := s.rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	}

	plan := spreading.SeedPlan{
		Model:       s.cfg.Model,
		Initiators:  s.cfg.Initiators,
		Lifespan:    s.cfg.Lifespan,
		Shelter:     s.cfg.Shelter,
		Vaccination: s.cfg.Vaccination,
	}
	store, asg, err := spreading.Initialize(s.g, plan, rng, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInitiator, err)
	}

	var rule spreading.Rule
	switch s.cfg.Model {
	case models.ModelCascade:
		rule = spreading.NewCascadeRule(s.cfg.Threshold)
	case models.ModelEpidemic:
		rule = spreading.NewEpidemicRule(s.cfg.Probability, s.cfg.Lifespan, rng)
	default:
		return nil, fmt.Errorf("%w: unknown model %q", ErrInvalidParameter, s.cfg.Model)
	}

	return &run{store: store, rule: rule, asg: asg}, nil
}

// Rounds returns the lazy sequence of rounds: round 0, then every round in
// which at least one node changed. The sequence ends at a fixed point or
// when the round cap is reached. A consumer may stop early by breaking.
func (s *Simulator) Rounds() iter.Seq[models.RoundSnapshot] {
	return func(yield func(models.RoundSnapshot) bool) {
		r := s.pending
		s.pending = nil
		if r == nil {
			var err error
			if r, err = s.begin(); err != nil {
				s.logger.Error("restarting simulation", "error", err)
				return
			}
		}

		t := newTally(s.cfg, s.seed, s.g.Len(), r.asg)
		limit := s.cfg.CapFor(s.g.Len())
		s.logger.Debug("simulation started",
			"model", s.cfg.Model,
			"nodes", s.g.Len(),
			"seed", s.seed,
			"round_cap", limit)

		snap := models.RoundSnapshot{Snapshot: r.store.Snapshot()}
		if !s.emit(t, snap, nil, yield) {
			s.end(t, ReasonStopped)
			return
		}

		for round := 1; round <= limit; round++ {
			next, stats := r.rule.Step(s.g, r.store)
			if stats.Changed == 0 {
				s.end(t, ReasonFixedPoint)
				return
			}

			var diff []spreading.Transition
			if s.trace.Verbose() {
				diff = spreading.Diff(r.store, next)
			}
			r.store = next

			snap := models.RoundSnapshot{
				Snapshot:       next.Snapshot(),
				Round:          round,
				NewTransitions: stats.NewTransitions(),
				Recoveries:     stats.Recoveries,
			}
			if !s.emit(t, snap, diff, yield) {
				s.end(t, ReasonStopped)
				return
			}
		}
		s.end(t, ReasonRoundCap)
	}
}

// emit records snap, notifies observers and hands it to the consumer.
func (s *Simulator) emit(t *tally, snap models.RoundSnapshot, diff []spreading.Transition, yield func(models.RoundSnapshot) bool) bool {
	t.observe(snap)

	s.logger.Debug("round",
		"round", snap.Round,
		"new", snap.NewTransitions,
		"recoveries", snap.Recoveries)

	event := map[string]any{
		"event":           "round",
		"round":           snap.Round,
		"new_transitions": snap.NewTransitions,
		"recoveries":      snap.Recoveries,
		"counts":          snap.Counts(),
	}
	if len(diff) > 0 {
		changes := make([]map[string]string, len(diff))
		for i, tr := range diff {
			changes[i] = map[string]string{
				"node": tr.Node,
				"from": tr.From.String(),
				"to":   tr.To.String(),
			}
		}
		event["transitions"] = changes
	}
	s.trace.Log(event)

	for _, o := range s.observers {
		o(snap)
	}
	return yield(snap)
}

func (s *Simulator) end(t *tally, reason Reason) {
	s.summary = t.finish(reason)
	s.logger.Info("simulation finished",
		"model", s.summary.Model,
		"rounds", s.summary.Rounds,
		"reason", s.summary.Reason,
		"new_total", s.summary.TotalNew())
}

// Run drains Rounds, checking ctx between rounds, and returns every round
// together with the summary.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	var rounds []models.RoundSnapshot
	for snap := range s.Rounds() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulation interrupted at round %d: %w", snap.Round, err)
		}
		rounds = append(rounds, snap)
	}
	return &Result{Config: s.cfg, Summary: s.summary, Rounds: rounds}, nil
}
