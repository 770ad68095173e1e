package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
)

// SQLiteHistoryStore implements HistoryStore using SQLite for persistence.
type SQLiteHistoryStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteHistoryStore opens (or creates) the database at dbPath.
func NewSQLiteHistoryStore(dbPath string) (*SQLiteHistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteHistoryStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteHistoryStore) Path() string { return s.dbPath }

// CreateRun inserts a new run.
func (s *SQLiteHistoryStore) CreateRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Model == "" {
		run.Model = run.Config.Model
	}

	configJSON, err := json.Marshal(run.Config)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, graph, model, config, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Graph, string(run.Model), string(configJSON), run.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return run.ID, nil
}

// AppendRound inserts a round and its node changes in one transaction.
func (s *SQLiteHistoryStore) AppendRound(ctx context.Context, runID string, rec RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	countsJSON, err := json.Marshal(rec.Counts)
	if err != nil {
		return fmt.Errorf("failed to encode counts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rounds (run_id, round, new_transitions, recoveries, counts) VALUES (?, ?, ?, ?, ?)`,
		runID, rec.Round, rec.NewTransitions, rec.Recoveries, string(countsJSON)); err != nil {
		return fmt.Errorf("failed to insert round %d: %w", rec.Round, err)
	}

	if len(rec.Changes) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO node_states (run_id, round, node, status, days_remaining) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare node insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range rec.Changes {
			if _, err := stmt.ExecContext(ctx, runID, rec.Round, c.Node, c.State.Status.String(), c.State.DaysRemaining); err != nil {
				return fmt.Errorf("failed to insert state of %s: %w", c.Node, err)
			}
		}
	}

	return tx.Commit()
}

// FinishRun stores the summary and finish time.
func (s *SQLiteHistoryStore) FinishRun(ctx context.Context, runID string, summary simulation.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, finished_at = ? WHERE id = ?`,
		string(summaryJSON), time.Now().UTC().Format(timeFormat), runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// timeFormat has fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, graph, model, config, summary, created_at, finished_at`

// GetRun loads a run by ID.
func (s *SQLiteHistoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteHistoryStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		graph      sql.NullString
		model      string
		configJSON string
		summary    sql.NullString
		createdAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&run.ID, &graph, &model, &configJSON, &summary, &createdAt, &finishedAt); err != nil {
		return nil, err
	}

	run.Graph = graph.String
	run.Model = models.Model(model)
	if err := json.Unmarshal([]byte(configJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config of run %s: %w", run.ID, err)
	}
	if summary.Valid {
		var sum simulation.Summary
		if err := json.Unmarshal([]byte(summary.String), &sum); err != nil {
			return nil, fmt.Errorf("failed to decode summary of run %s: %w", run.ID, err)
		}
		run.Summary = &sum
	}
	if t, err := time.Parse(timeFormat, createdAt); err == nil {
		run.CreatedAt = t
	}
	if finishedAt.Valid {
		if t, err := time.Parse(timeFormat, finishedAt.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

// Rounds returns the per-round counts of a run.
func (s *SQLiteHistoryStore) Rounds(ctx context.Context, runID string) ([]RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT round, new_transitions, recoveries, counts FROM rounds WHERE run_id = ? ORDER BY round`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var rec RoundRecord
		var counts string
		if err := rows.Scan(&rec.Round, &rec.NewTransitions, &rec.Recoveries, &counts); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &rec.Counts); err != nil {
			return nil, fmt.Errorf("failed to decode counts of round %d: %w", rec.Round, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// NodeStates reconstructs the state of every node at round.
func (s *SQLiteHistoryStore) NodeStates(ctx context.Context, runID string, round int) (map[string]models.NodeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT round, node, status, days_remaining FROM node_states
		 WHERE run_id = ? AND round <= ? ORDER BY round`, runID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to query node states: %w", err)
	}
	defer rows.Close()

	var records []RoundRecord
	for rows.Next() {
		var (
			r      int
			node   string
			status string
			days   int
		)
		if err := rows.Scan(&r, &node, &status, &days); err != nil {
			return nil, fmt.Errorf("failed to scan node state: %w", err)
		}
		st, err := models.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("node %s round %d: %w", node, r, err)
		}
		if len(records) == 0 || records[len(records)-1].Round != r {
			records = append(records, RoundRecord{Round: r})
		}
		last := &records[len(records)-1]
		last.Changes = append(last.Changes, NodeChange{Node: node, State: models.NodeState{Status: st, DaysRemaining: days}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return replay(records, round), nil
}

// DeleteRun removes a run; rounds and node states cascade.
func (s *SQLiteHistoryStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func (s *SQLiteHistoryStore) requireRun(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteHistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
