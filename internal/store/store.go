// Package store defines the HistoryStore interface for recording simulation
// runs and reading them back.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded simulation.
type Run struct {
	ID         string              `json:"id"`
	Graph      string              `json:"graph"` // graph file the run was loaded from
	Model      models.Model        `json:"model"`
	Config     simulation.Config   `json:"config"`
	Summary    *simulation.Summary `json:"summary,omitempty"` // nil until finished
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// NodeChange is a node whose state differs from the previous round.
type NodeChange struct {
	Node  string           `json:"node"`
	State models.NodeState `json:"state"`
}

// RoundRecord is the stored form of one round. Round 0 lists every node in
// Changes; later rounds list only the nodes that changed.
type RoundRecord struct {
	Round          int                   `json:"round"`
	NewTransitions int                   `json:"new_transitions"`
	Recoveries     int                   `json:"recoveries"`
	Counts         map[models.Status]int `json:"counts"`
	Changes        []NodeChange          `json:"changes,omitempty"`
}

// HistoryStore defines the interface for storing and querying run history.
type HistoryStore interface {
	// CreateRun stores a new run and returns its ID. An empty run.ID is
	// replaced with a fresh UUID.
	CreateRun(ctx context.Context, run Run) (string, error)

	// AppendRound stores one round of a run. Rounds must arrive in order.
	AppendRound(ctx context.Context, runID string, rec RoundRecord) error

	// FinishRun attaches the final summary to a run.
	FinishRun(ctx context.Context, runID string, summary simulation.Summary) error

	// GetRun returns a run or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Rounds returns the per-round counts of a run, without node changes.
	Rounds(ctx context.Context, runID string) ([]RoundRecord, error)

	// NodeStates reconstructs every node's state at the given round.
	NodeStates(ctx context.Context, runID string, round int) (map[string]models.NodeState, error)

	// DeleteRun removes a run and everything recorded for it.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// Recorder feeds a simulator's rounds into a HistoryStore. Use Observe as
// a simulation.Observer. The first storage error stops recording and is
// reported by Err; the simulation itself is never affected.
type Recorder struct {
	ctx   context.Context
	store HistoryStore
	runID string
	prev  *models.Snapshot
	err   error
}

// NewRecorder creates the run and returns a recorder for it.
func NewRecorder(ctx context.Context, s HistoryStore, run Run) (*Recorder, error) {
	id, err := s.CreateRun(ctx, run)
	if err != nil {
		return nil, err
	}
	return &Recorder{ctx: ctx, store: s, runID: id}, nil
}

// RunID returns the ID of the run being recorded.
func (r *Recorder) RunID() string { return r.runID }

// Observe stores snap.
func (r *Recorder) Observe(snap models.RoundSnapshot) {
	if r.err != nil {
		return
	}

	rec := RoundRecord{
		Round:          snap.Round,
		NewTransitions: snap.NewTransitions,
		Recoveries:     snap.Recoveries,
		Counts:         snap.Counts(),
		Changes:        changesSince(r.prev, snap.Snapshot),
	}
	if err := r.store.AppendRound(r.ctx, r.runID, rec); err != nil {
		r.err = err
		return
	}
	cur := snap.Snapshot
	r.prev = &cur
}

// Finish stores the summary. It returns the first recording error, if any.
// The summary is written even when the run's context was cancelled, so an
// interrupted run keeps how far it got.
func (r *Recorder) Finish(summary simulation.Summary) error {
	if r.err != nil {
		return r.err
	}
	return r.store.FinishRun(context.WithoutCancel(r.ctx), r.runID, summary)
}

// Err returns the first recording error.
func (r *Recorder) Err() error { return r.err }

// changesSince compares positionally; snapshots of one run share node order.
func changesSince(prev *models.Snapshot, cur models.Snapshot) []NodeChange {
	var out []NodeChange
	for i := 0; i < cur.Len(); i++ {
		id, st := cur.At(i)
		if prev != nil && i < prev.Len() {
			if _, was := prev.At(i); was == st {
				continue
			}
		}
		out = append(out, NodeChange{Node: id, State: st})
	}
	return out
}

// replay folds changes up to round into a full state map.
func replay(records []RoundRecord, round int) map[string]models.NodeState {
	states := make(map[string]models.NodeState)
	for _, rec := range records {
		if rec.Round > round {
			break
		}
		for _, c := range rec.Changes {
			states[c.Node] = c.State
		}
	}
	return states
}
