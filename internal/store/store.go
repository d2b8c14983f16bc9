// Package store persists simulation runs and their trials.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run describes one persisted simulation run.
type Run struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Kind              string             `json:"kind"`
	ItemCount         int                `json:"item_count"`
	PresentationCount int                `json:"presentation_count"`
	StudyOrder        []int              `json:"study_order"`
	Trials            int                `json:"trials"`
	Seed              uint64             `json:"seed"`
	Parameters        map[string]float64 `json:"parameters"`
	CreatedAt         time.Time          `json:"created_at"`
}

// TrialRecord is one persisted trial of a run.
type TrialRecord struct {
	RunID   string `json:"run_id"`
	Index   int    `json:"index"`
	Seed    uint64 `json:"seed"`
	Recall  []int  `json:"recall"`
	Stopped bool   `json:"stopped"`
}

// TrialStore defines the interface for storing and querying simulation runs.
type TrialStore interface {
	// SaveRun stores run and its trials. An empty run.ID is assigned a new
	// id; the stored run is returned.
	SaveRun(ctx context.Context, run Run, trials []TrialRecord) (Run, error)

	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns all runs, newest first.
	ListRuns(ctx context.Context) ([]Run, error)

	// ListTrials returns the trials of a run ordered by index.
	ListTrials(ctx context.Context, runID string) ([]TrialRecord, error)

	Close() error
}
