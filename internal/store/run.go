package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/cmr/internal/simulation"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// FromResult converts a simulation result into a run and its trial records.
// The run gets a new id and the current time.
func FromResult(result simulation.SimulationResult) (Run, []TrialRecord) {
	sc := result.Scenario
	order := sc.StudyOrder()
	run := Run{
		ID:                NewRunID(),
		Name:              sc.Name,
		Kind:              string(sc.Kind),
		ItemCount:         sc.ItemCount,
		PresentationCount: len(order),
		StudyOrder:        append([]int(nil), order...),
		Trials:            len(result.Trials),
		Seed:              sc.Seed,
		Parameters:        sc.Parameters.Map(sc.Kind),
		CreatedAt:         time.Now().UTC(),
	}

	trials := make([]TrialRecord, len(result.Trials))
	for i, t := range result.Trials {
		trials[i] = TrialRecord{
			RunID:   run.ID,
			Index:   t.Index,
			Seed:    t.Seed,
			Recall:  append([]int(nil), t.Recall...),
			Stopped: t.Stopped,
		}
	}
	return run, trials
}
