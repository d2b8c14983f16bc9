package simulation

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/nvandessel/cmr/internal/cmr"
)

// LikelihoodResult is the log probability the model assigns to a set of
// observed recall sequences.
type LikelihoodResult struct {
	LogLikelihood float64   `json:"log_likelihood"`
	PerSequence   []float64 `json:"per_sequence"`
}

// MarshalJSON writes non-finite values as the strings "-Inf", "+Inf" and
// "NaN", which encoding/json cannot represent as numbers. A sequence the model
// finds impossible is a valid result, not an encoding error.
func (r LikelihoodResult) MarshalJSON() ([]byte, error) {
	per := make([]any, len(r.PerSequence))
	for i, v := range r.PerSequence {
		per[i] = jsonFloat(v)
	}
	return json.Marshal(struct {
		LogLikelihood any   `json:"log_likelihood"`
		PerSequence   []any `json:"per_sequence"`
	}{jsonFloat(r.LogLikelihood), per})
}

func jsonFloat(v float64) any {
	switch {
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return v
}

// Likelihood replays each observed sequence (0-based item indices) through a
// freshly encoded engine with ForceRecall. Every observed recall contributes
// the log probability of that item at its step and every sequence ends with
// the log probability of stopping. An item the model gives zero probability
// makes the total -Inf.
func Likelihood(scenario Scenario, sequences [][]int) (LikelihoodResult, error) {
	if err := scenario.Validate(); err != nil {
		return LikelihoodResult{}, err
	}
	list, err := cmr.StudyList(scenario.Kind, scenario.ItemCount, scenario.StudyOrder())
	if err != nil {
		return LikelihoodResult{}, fmt.Errorf("likelihood: %w", err)
	}

	res := LikelihoodResult{PerSequence: make([]float64, len(sequences))}
	for i, seq := range sequences {
		ll, err := sequenceLikelihood(scenario, list, seq)
		if err != nil {
			return LikelihoodResult{}, fmt.Errorf("likelihood: sequence %d: %w", i, err)
		}
		res.PerSequence[i] = ll
		res.LogLikelihood += ll
	}
	return res, nil
}

func sequenceLikelihood(scenario Scenario, list [][]float64, seq []int) (float64, error) {
	eng, err := cmr.New(scenario.Kind, scenario.ItemCount, len(list), scenario.Parameters, cmr.WithSeed(scenario.Seed))
	if err != nil {
		return 0, err
	}
	if err := eng.Experience(list); err != nil {
		return 0, err
	}
	if _, err := eng.BeginRecall(); err != nil {
		return 0, err
	}

	var ll float64
	for step, item := range seq {
		if item < 0 {
			return 0, fmt.Errorf("step %d: %w: item %d", step, cmr.ErrChoiceOutOfRange, item)
		}
		p := eng.OutcomeProbabilities()
		if _, err := eng.ForceRecall(item + 1); err != nil {
			return 0, fmt.Errorf("step %d: %w", step, err)
		}
		ll += math.Log(p[item+1])
	}
	p := eng.OutcomeProbabilities()
	ll += math.Log(p[0])
	if _, err := eng.ForceRecall(0); err != nil {
		return 0, err
	}
	return ll, nil
}
