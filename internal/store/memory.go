package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
)

// InMemoryHistoryStore implements HistoryStore for testing and for MCP
// sessions that do not ask for a database.
type InMemoryHistoryStore struct {
	mu     sync.RWMutex
	runs   map[string]Run
	rounds map[string][]RoundRecord
}

// NewInMemoryHistoryStore creates a new in-memory store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		runs:   make(map[string]Run),
		rounds: make(map[string][]RoundRecord),
	}
}

// CreateRun adds a run to the store.
func (s *InMemoryHistoryStore) CreateRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, exists := s.runs[run.ID]; exists {
		return "", fmt.Errorf("run already exists: %s", run.ID)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Model == "" {
		run.Model = run.Config.Model
	}
	run.Summary = nil
	run.FinishedAt = nil

	s.runs[run.ID] = run
	return run.ID, nil
}

// AppendRound stores a copy of rec.
func (s *InMemoryHistoryStore) AppendRound(ctx context.Context, runID string, rec RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	existing := s.rounds[runID]
	if n := len(existing); n > 0 && existing[n-1].Round >= rec.Round {
		return fmt.Errorf("round %d out of order after round %d", rec.Round, existing[n-1].Round)
	}

	rec.Changes = slices.Clone(rec.Changes)
	counts := make(map[models.Status]int, len(rec.Counts))
	for k, v := range rec.Counts {
		counts[k] = v
	}
	rec.Counts = counts

	s.rounds[runID] = append(existing, rec)
	return nil
}

// FinishRun attaches the summary.
func (s *InMemoryHistoryStore) FinishRun(ctx context.Context, runID string, summary simulation.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	now := time.Now()
	run.Summary = &summary
	run.FinishedAt = &now
	s.runs[runID] = run
	return nil
}

// GetRun retrieves a run by ID.
func (s *InMemoryHistoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &run, nil
}

// ListRuns returns runs newest first.
func (s *InMemoryHistoryStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	slices.SortFunc(runs, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Rounds returns the per-round counts of a run.
func (s *InMemoryHistoryStore) Rounds(ctx context.Context, runID string) ([]RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	recs := s.rounds[runID]
	out := make([]RoundRecord, len(recs))
	for i, rec := range recs {
		rec.Changes = nil
		out[i] = rec
	}
	return out, nil
}

// NodeStates reconstructs every node's state at round.
func (s *InMemoryHistoryStore) NodeStates(ctx context.Context, runID string, round int) (map[string]models.NodeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return replay(s.rounds[runID], round), nil
}

// DeleteRun removes a run.
func (s *InMemoryHistoryStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	delete(s.rounds, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryHistoryStore) Close() error { return nil }
