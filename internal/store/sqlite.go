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

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteTrialStore implements TrialStore using SQLite for persistence.
type SQLiteTrialStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteTrialStore opens (creating if needed) the database at dbPath.
func NewSQLiteTrialStore(dbPath string) (*SQLiteTrialStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteTrialStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteTrialStore) Path() string { return s.dbPath }

// SaveRun stores run and trials in one transaction.
func (s *SQLiteTrialStore) SaveRun(ctx context.Context, run Run, trials []TrialRecord) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Trials = len(trials)

	order, err := json.Marshal(nonNilInts(run.StudyOrder))
	if err != nil {
		return Run{}, fmt.Errorf("failed to marshal study order: %w", err)
	}
	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return Run{}, fmt.Errorf("failed to marshal parameters: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, kind, item_count, presentation_count, study_order, trials, seed, parameters, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Kind, run.ItemCount, run.PresentationCount, string(order),
		run.Trials, int64(run.Seed), string(params), run.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return Run{}, fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trials (run_id, trial_index, seed, recall, recall_count, stopped)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("failed to prepare trial insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trials {
		recall, err := json.Marshal(nonNilInts(t.Recall))
		if err != nil {
			return Run{}, fmt.Errorf("failed to marshal trial %d: %w", t.Index, err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, t.Index, int64(t.Seed), string(recall), len(t.Recall), boolToInt(t.Stopped)); err != nil {
			return Run{}, fmt.Errorf("failed to insert trial %d: %w", t.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return run, nil
}

// GetRun returns the run with the given id.
func (s *SQLiteTrialStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, item_count, presentation_count, study_order, trials, seed, parameters, created_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (s *SQLiteTrialStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, item_count, presentation_count, study_order, trials, seed, parameters, created_at
		FROM runs ORDER BY created_at DESC, id`)
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
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListTrials returns the trials of a run ordered by index.
func (s *SQLiteTrialStore) ListTrials(ctx context.Context, runID string) ([]TrialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, trial_index, seed, recall, stopped
		FROM trials WHERE run_id = ? ORDER BY trial_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer rows.Close()

	var trials []TrialRecord
	for rows.Next() {
		var (
			t       TrialRecord
			seed    int64
			recall  string
			stopped int
		)
		if err := rows.Scan(&t.RunID, &t.Index, &seed, &recall, &stopped); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		if err := json.Unmarshal([]byte(recall), &t.Recall); err != nil {
			return nil, fmt.Errorf("failed to parse recall of trial %d: %w", t.Index, err)
		}
		t.Seed = uint64(seed)
		t.Stopped = stopped != 0
		trials = append(trials, t)
	}
	return trials, rows.Err()
}

// Close closes the database.
func (s *SQLiteTrialStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run           Run
		order, params string
		seed          int64
		createdAt     string
	)
	if err := row.Scan(&run.ID, &run.Name, &run.Kind, &run.ItemCount, &run.PresentationCount,
		&order, &run.Trials, &seed, &params, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(order), &run.StudyOrder); err != nil {
		return Run{}, fmt.Errorf("failed to parse study order of run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(params), &run.Parameters); err != nil {
		return Run{}, fmt.Errorf("failed to parse parameters of run %s: %w", run.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("failed to parse created_at of run %s: %w", run.ID, err)
	}
	run.CreatedAt = t
	run.Seed = uint64(seed)
	return run, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
