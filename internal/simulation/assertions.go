package simulation

import (
	"testing"
)

// AssertValidRecalls asserts that every trial recalled in-range items with
// no repeats.
func AssertValidRecalls(t *testing.T, result SimulationResult) {
	t.Helper()
	n := result.Scenario.ItemCount
	for _, trial := range result.Trials {
		seen := make(map[int]bool, len(trial.Recall))
		for _, item := range trial.Recall {
			if item < 0 || item >= n {
				t.Errorf("AssertValidRecalls: trial %d: item %d out of range [0, %d)", trial.Index, item, n)
			}
			if seen[item] {
				t.Errorf("AssertValidRecalls: trial %d: item %d recalled twice", trial.Index, item)
			}
			seen[item] = true
		}
	}
}

// AssertRecallLengthsWithin asserts that every trial recalled between min
// and max items inclusive.
func AssertRecallLengthsWithin(t *testing.T, result SimulationResult, min, max int) {
	t.Helper()
	for _, trial := range result.Trials {
		if l := len(trial.Recall); l < min || l > max {
			t.Errorf("AssertRecallLengthsWithin: trial %d: recalled %d items, want [%d, %d]", trial.Index, l, min, max)
		}
	}
}

// AssertSummaryBounded asserts that every fraction in s lies in [0, 1] and
// that first-recall fractions sum to at most 1.
func AssertSummaryBounded(t *testing.T, s Summary) {
	t.Helper()
	var first float64
	for i := range s.SerialPosition {
		if v := s.SerialPosition[i]; v < 0 || v > 1 {
			t.Errorf("AssertSummaryBounded: serial position %d: %.4f not in [0, 1]", i, v)
		}
		first += s.FirstRecall[i]
	}
	if first+s.EmptyRecall > 1+1e-9 {
		t.Errorf("AssertSummaryBounded: first-recall plus empty fractions sum to %.6f > 1", first+s.EmptyRecall)
	}
}
