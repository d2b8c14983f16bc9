package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/cmr/internal/cmr"
	"github.com/nvandessel/cmr/internal/logging"
)

// Runner executes scenarios trial by trial.
type Runner struct {
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger handed to the runner and every engine it builds.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDecisionLogger records every engine decision.
func WithDecisionLogger(dl *logging.DecisionLogger) RunnerOption {
	return func(r *Runner) {
		r.decisions = dl
	}
}

// NewRunner creates a simulation runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every trial of the scenario. It checks ctx between trials
// and returns the trials completed so far alongside a cancellation error.
func (r *Runner) Run(ctx context.Context, scenario Scenario) (SimulationResult, error) {
	result := SimulationResult{Scenario: scenario}
	if err := scenario.Validate(); err != nil {
		return result, err
	}

	order := scenario.StudyOrder()
	list, err := cmr.StudyList(scenario.Kind, scenario.ItemCount, order)
	if err != nil {
		return result, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	r.logger.Info("simulation started",
		"scenario", scenario.Name, "kind", string(scenario.Kind),
		"items", scenario.ItemCount, "presentations", len(order), "trials", scenario.Trials)

	result.Trials = make([]Trial, 0, scenario.Trials)
	for i := 0; i < scenario.Trials; i++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("scenario %q: stopped after %d trials: %w", scenario.Name, i, err)
		}
		trial, err := r.runTrial(scenario, i, list)
		if err != nil {
			return result, fmt.Errorf("scenario %q: trial %d: %w", scenario.Name, i, err)
		}
		result.Trials = append(result.Trials, trial)
	}

	r.logger.Info("simulation finished", "scenario", scenario.Name, "trials", len(result.Trials))
	return result, nil
}

// runTrial encodes the study list into a fresh engine and free-recalls.
func (r *Runner) runTrial(scenario Scenario, index int, list [][]float64) (Trial, error) {
	seed := scenario.Seed + uint64(index)
	eng, err := cmr.New(scenario.Kind, scenario.ItemCount, len(list), scenario.Parameters,
		cmr.WithSeed(seed),
		cmr.WithLogger(r.logger),
		cmr.WithDecisionLogger(r.decisions))
	if err != nil {
		return Trial{}, err
	}
	if err := eng.Experience(list); err != nil {
		return Trial{}, err
	}

	steps := cmr.RecallAll
	if scenario.MaxRecalls > 0 {
		steps = scenario.MaxRecalls
	}
	recall, err := eng.FreeRecall(steps)
	if err != nil {
		return Trial{}, err
	}

	return Trial{
		Index:   index,
		Seed:    seed,
		Recall:  recall,
		Stopped: eng.State() == cmr.Idle,
	}, nil
}
