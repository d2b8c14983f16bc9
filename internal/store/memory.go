package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// InMemoryTrialStore implements TrialStore for testing and runs without a database.
type InMemoryTrialStore struct {
	mu     sync.RWMutex
	runs   map[string]Run
	trials map[string][]TrialRecord
}

// NewInMemoryTrialStore creates a new in-memory store.
func NewInMemoryTrialStore() *InMemoryTrialStore {
	return &InMemoryTrialStore{
		runs:   make(map[string]Run),
		trials: make(map[string][]TrialRecord),
	}
}

// SaveRun stores run and trials.
func (s *InMemoryTrialStore) SaveRun(ctx context.Context, run Run, trials []TrialRecord) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = NewRunID()
	}
	if _, exists := s.runs[run.ID]; exists {
		return Run{}, fmt.Errorf("run %s already exists", run.ID)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Trials = len(trials)
	run.StudyOrder = nonNilInts(slices.Clone(run.StudyOrder))

	stored := make([]TrialRecord, len(trials))
	for i, t := range trials {
		t.RunID = run.ID
		t.Recall = nonNilInts(slices.Clone(t.Recall))
		stored[i] = t
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Index < stored[j].Index })

	s.runs[run.ID] = run
	s.trials[run.ID] = stored
	return run, nil
}

// GetRun returns the run with the given id.
func (s *InMemoryTrialStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (s *InMemoryTrialStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

// ListTrials returns the trials of a run ordered by index.
func (s *InMemoryTrialStore) ListTrials(ctx context.Context, runID string) ([]TrialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trials, ok := s.trials[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return slices.Clone(trials), nil
}

// Close is a no-op for in-memory store.
func (s *InMemoryTrialStore) Close() error {
	return nil
}
