package simulation

import (
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the recall behavior of a simulation.
type Summary struct {
	Trials int `json:"trials"`

	// MeanRecalled and StdRecalled describe the number of items recalled per trial.
	MeanRecalled float64 `json:"mean_recalled"`
	StdRecalled  float64 `json:"std_recalled"`

	// SerialPosition[i] is the fraction of trials that recalled the item
	// first studied at position i.
	SerialPosition []float64 `json:"serial_position"`

	// FirstRecall[i] is the fraction of trials whose first recall was the
	// item first studied at position i.
	FirstRecall []float64 `json:"first_recall"`

	// EmptyRecall is the fraction of trials that stopped without recalling.
	EmptyRecall float64 `json:"empty_recall"`
}

// Summarize computes recall statistics over every trial of result.
func Summarize(result SimulationResult) Summary {
	positions := result.Scenario.SerialPositions()
	width := len(result.Scenario.StudyOrder())
	s := Summary{
		Trials:         len(result.Trials),
		SerialPosition: make([]float64, width),
		FirstRecall:    make([]float64, width),
	}
	if s.Trials == 0 {
		return s
	}

	lengths := make([]float64, s.Trials)
	for i, trial := range result.Trials {
		lengths[i] = float64(len(trial.Recall))
		if len(trial.Recall) == 0 {
			s.EmptyRecall++
			continue
		}
		for j, item := range trial.Recall {
			pos, ok := positions[item]
			if !ok {
				continue
			}
			s.SerialPosition[pos]++
			if j == 0 {
				s.FirstRecall[pos]++
			}
		}
	}

	n := float64(s.Trials)
	for i := range s.SerialPosition {
		s.SerialPosition[i] /= n
		s.FirstRecall[i] /= n
	}
	s.EmptyRecall /= n

	s.MeanRecalled = stat.Mean(lengths, nil)
	if s.Trials > 1 {
		s.StdRecalled = stat.StdDev(lengths, nil)
	}
	return s
}
