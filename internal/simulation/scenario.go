package simulation

import (
	"fmt"

	"github.com/nvandessel/cmr/internal/cmr"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name       string
	Kind       cmr.Kind
	ItemCount  int
	Parameters cmr.Parameters

	// Order lists the item presented at each study position. Empty means
	// items 0..ItemCount-1 once each.
	Order []int

	// Trials is the number of independent trials to simulate.
	Trials int

	// Seed seeds trial 0; trial i uses Seed+i.
	Seed uint64

	// MaxRecalls caps recalls per trial. Zero means no cap.
	MaxRecalls int
}

// StudyOrder returns Order, or the identity order when Order is empty.
func (s Scenario) StudyOrder() []int {
	if len(s.Order) > 0 {
		return s.Order
	}
	order := make([]int, s.ItemCount)
	for i := range order {
		order[i] = i
	}
	return order
}

// Validate checks the scenario before any engine is built.
func (s Scenario) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("scenario %q: %w", s.Name, cmr.ErrUnknownKind)
	}
	if s.ItemCount <= 0 {
		return fmt.Errorf("scenario %q: item count must be positive, got %d", s.Name, s.ItemCount)
	}
	if s.Trials < 0 {
		return fmt.Errorf("scenario %q: trials must be non-negative, got %d", s.Name, s.Trials)
	}
	if s.MaxRecalls < 0 {
		return fmt.Errorf("scenario %q: max recalls must be non-negative, got %d", s.Name, s.MaxRecalls)
	}
	for i, item := range s.Order {
		if item < 0 || item >= s.ItemCount {
			return fmt.Errorf("scenario %q: study position %d names item %d of %d", s.Name, i, item, s.ItemCount)
		}
	}
	return s.Parameters.Validate()
}

// Trial captures the outcome of one simulated recall period.
type Trial struct {
	Index   int    `json:"index"`
	Seed    uint64 `json:"seed"`
	Recall  []int  `json:"recall"`
	Stopped bool   `json:"stopped"` // false when every item was recalled or MaxRecalls was hit
}

// SimulationResult captures all trials of a scenario.
type SimulationResult struct {
	Scenario Scenario
	Trials   []Trial
}

// SerialPositions maps each item to the first study position it occupied.
func (s Scenario) SerialPositions() map[int]int {
	positions := make(map[int]int, s.ItemCount)
	for pos, item := range s.StudyOrder() {
		if _, seen := positions[item]; !seen {
			positions[item] = pos
		}
	}
	return positions
}
