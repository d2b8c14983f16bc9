package cmr

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/nvandessel/cmr/internal/logging"
	"github.com/nvandessel/cmr/internal/vecmath"
)

// RecallAll asks FreeRecall to continue until a stop is drawn or every item
// has been recalled.
const RecallAll = -1

// Engine is one simulated subject: a context vector, a memory store, and the
// retrieval episode driven over them.
type Engine struct {
	params            Parameters
	itemCount         int
	presentationCount int

	mem Memory

	context      []float64
	startInput   []float64
	delayInput   []float64
	preretrieval []float64

	state    EpisodeState
	episode  int
	recall   []int
	recalled []bool
	encoded  int

	probabilities []float64

	rng       RandomSource
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// New builds an engine of the given kind for a list of itemCount distinct
// items presented presentationCount times in total.
func New(kind Kind, itemCount, presentationCount int, params Parameters, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var mem Memory
	var err error
	switch kind {
	case KindClassic:
		mem, err = NewAssociativeMemory(itemCount, presentationCount, params)
	case KindInstance:
		mem, err = NewInstanceMemory(itemCount, presentationCount, params)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	if err != nil {
		return nil, err
	}

	start, delay := reinstatementCues(itemCount)
	e := &Engine{
		params:            params,
		itemCount:         itemCount,
		presentationCount: presentationCount,
		mem:               mem,
		context:           vecmath.Clone(start),
		startInput:        start,
		delayInput:        delay,
		recall:            make([]int, 0, itemCount),
		recalled:          make([]bool, itemCount),
		probabilities:     make([]float64, itemCount+1),
		rng:               NewRand(DefaultSeed),
		logger:            logging.Discard(),
	}
	e.preretrieval = vecmath.Clone(e.context)

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewClassic builds an engine over AssociativeMemory.
func NewClassic(itemCount, presentationCount int, params Parameters, opts ...Option) (*Engine, error) {
	return New(KindClassic, itemCount, presentationCount, params, opts...)
}

// NewInstance builds an engine over InstanceMemory.
func NewInstance(itemCount, presentationCount int, params Parameters, opts ...Option) (*Engine, error) {
	return New(KindInstance, itemCount, presentationCount, params, opts...)
}

// Kind returns the memory realization.
func (e *Engine) Kind() Kind { return e.mem.Kind() }

// ItemCount returns the number of distinct items.
func (e *Engine) ItemCount() int { return e.itemCount }

// PresentationCount returns the number of presentations the engine can encode.
func (e *Engine) PresentationCount() int { return e.presentationCount }

// Parameters returns the engine's parameters.
func (e *Engine) Parameters() Parameters { return e.params }

// Memory exposes the underlying store for inspection.
func (e *Engine) Memory() Memory { return e.mem }

// Context returns a copy of the current context vector.
func (e *Engine) Context() []float64 { return vecmath.Clone(e.context) }

// State returns the retrieval episode state.
func (e *Engine) State() EpisodeState { return e.state }

// EncodingIndex returns the memory's next write position.
func (e *Engine) EncodingIndex() int { return e.mem.EncodingIndex() }

// Recall returns a copy of the recall sequence of the current or most
// recent episode as 0-based item indices.
func (e *Engine) Recall() []int {
	return append([]int(nil), e.recall...)
}

// UpdateContext drifts context toward input at the given rate. input is
// either a memory probe of FeatureWidth, whose retrieved context is used,
// or a context-width vector used directly.
func (e *Engine) UpdateContext(rate float64, input []float64) error {
	if len(input) != len(e.context) {
		if len(input) != e.mem.FeatureWidth() {
			return fmt.Errorf("update context: %w: input width %d, want %d or %d",
				ErrInvalidDimensions, len(input), len(e.context), e.mem.FeatureWidth())
		}
		in, err := e.mem.ContextInput(input)
		if err != nil {
			return fmt.Errorf("update context: %w", err)
		}
		input = in
	}
	return Drift(e.context, input, e.mem.DriftRate(rate))
}

// Experience encodes one feature vector per presentation. Each presentation
// drifts context with the item as retrieval probe, then binds the item to
// the drifted context. The whole batch is rejected up front when it would
// overflow the presentation count or has a malformed vector.
func (e *Engine) Experience(features [][]float64) error {
	if e.encoded+len(features) > e.presentationCount {
		return fmt.Errorf("experience: %w: %d encoded, %d more requested, capacity %d",
			ErrCapacityExceeded, e.encoded, len(features), e.presentationCount)
	}
	width := e.mem.FeatureWidth()
	for i, f := range features {
		if len(f) != width {
			return fmt.Errorf("experience: %w: presentation %d has width %d, want %d", ErrInvalidDimensions, i, len(f), width)
		}
	}

	for i, f := range features {
		if err := e.UpdateContext(e.params.EncodingDriftRate, f); err != nil {
			return fmt.Errorf("experience: presentation %d: %w", e.encoded, err)
		}
		if err := e.mem.Encode(f, e.context); err != nil {
			return fmt.Errorf("experience: presentation %d: %w", e.encoded, err)
		}
		e.encoded++
		e.logger.Log(context.Background(), logging.LevelTrace, "encoded presentation",
			"engine", string(e.Kind()), "position", e.encoded-1, "batch_index", i)
	}
	return nil
}

// OutcomeProbabilities returns the probability of stopping (slot 0) and of
// recalling each item (slot k for item k-1) given the current context.
// Already-recalled items have probability exactly 0 and the slots sum to 1.
func (e *Engine) OutcomeProbabilities() []float64 {
	return vecmath.Clone(e.outcomeProbabilities())
}

func (e *Engine) outcomeProbabilities() []float64 {
	p := e.probabilities
	floor := e.mem.Floor()
	total := len(e.recall)
	ceiling := 1.0 - float64(e.itemCount-total)*floor

	stop := math.Min(e.params.StopProbabilityScale*math.Exp(float64(total)*e.params.StopProbabilityGrowth), ceiling)
	p[0] = stop
	for i, done := range e.recalled {
		if done {
			p[i+1] = 0
		} else {
			p[i+1] = floor
		}
	}
	if stop >= ceiling {
		return p
	}

	act := e.mem.ItemActivations(e.context)
	var sum float64
	for i := range act {
		if e.recalled[i] {
			act[i] = 0
			continue
		}
		act[i] = vecmath.Power(act[i], e.params.ChoiceSensitivity)
		sum += act[i]
	}

	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		// no candidate has support: all mass goes to stopping
		p[0] = 1
		for i := 1; i < len(p); i++ {
			p[i] = 0
		}
		return p
	}

	for i := range act {
		if !e.recalled[i] && act[i] == 0 {
			act[i] = floor
			sum += floor
		}
	}
	for i, a := range act {
		p[i+1] = (1 - stop) * a / sum
	}
	return p
}

// FreeRecall samples up to steps recalls (RecallAll for no limit) and returns
// the recall sequence of the episode. The first call of an episode
// reinstates the delay and start contexts. Drawing a stop closes the
// episode and restores the pre-retrieval context. FreeRecall(0) only opens
// the episode.
func (e *Engine) FreeRecall(steps int) ([]int, error) {
	if err := e.beginEpisode(); err != nil {
		return e.Recall(), err
	}

	remaining := e.itemCount - len(e.recall)
	if steps < 0 || steps > remaining {
		steps = remaining
	}
	target := len(e.recall) + steps

	for len(e.recall) < target {
		p := e.outcomeProbabilities()
		choice := e.sample(p)
		e.logStep(choice, p, false)

		if choice == 0 {
			e.endEpisode()
			break
		}
		if err := e.recallItem(choice - 1); err != nil {
			return e.Recall(), err
		}
	}
	return e.Recall(), nil
}

// ForceRecall advances the episode with a caller-chosen outcome: choice k>0
// recalls item k-1 and choice <= 0 stops. It opens the episode first when
// needed. Out-of-range and repeated items are rejected without changing state.
func (e *Engine) ForceRecall(choice int) ([]int, error) {
	if choice > e.itemCount {
		return e.Recall(), fmt.Errorf("force recall: %w: choice %d, item count %d", ErrChoiceOutOfRange, choice, e.itemCount)
	}
	if choice > 0 && e.state == Retrieving && e.recalled[choice-1] {
		return e.Recall(), fmt.Errorf("force recall: %w: item %d", ErrAlreadyRecalled, choice-1)
	}
	if err := e.beginEpisode(); err != nil {
		return e.Recall(), err
	}

	if choice <= 0 {
		e.logStep(0, nil, true)
		e.endEpisode()
		return e.Recall(), nil
	}
	e.logStep(choice, nil, true)
	if err := e.recallItem(choice - 1); err != nil {
		return e.Recall(), err
	}
	return e.Recall(), nil
}

// BeginRecall opens a retrieval episode without recalling anything. It is a
// no-op while an episode is open.
func (e *Engine) BeginRecall() ([]int, error) {
	if err := e.beginEpisode(); err != nil {
		return e.Recall(), err
	}
	return e.Recall(), nil
}

// beginEpisode moves Idle to Retrieving: the recall sequence is cleared,
// context is saved, and the delay then start contexts are reinstated.
func (e *Engine) beginEpisode() error {
	if e.state == Retrieving {
		return nil
	}

	saved := vecmath.Clone(e.context)
	if err := e.UpdateContext(e.params.DelayDriftRate, e.delayInput); err != nil {
		copy(e.context, saved)
		return fmt.Errorf("begin recall: %w", err)
	}
	if err := e.UpdateContext(e.params.StartDriftRate, e.startInput); err != nil {
		copy(e.context, saved)
		return fmt.Errorf("begin recall: %w", err)
	}

	e.preretrieval = saved
	e.recall = e.recall[:0]
	clear(e.recalled)
	e.state = Retrieving
	e.episode++
	e.logger.Debug("recall episode opened", "engine", string(e.Kind()), "episode", e.episode)
	return nil
}

// endEpisode moves Retrieving to Idle and restores the pre-retrieval context.
func (e *Engine) endEpisode() {
	copy(e.context, e.preretrieval)
	e.state = Idle
	e.logger.Debug("recall episode closed", "engine", string(e.Kind()), "episode", e.episode, "recalled", len(e.recall))
}

// recallItem appends item and drifts context toward its retrieved context.
func (e *Engine) recallItem(item int) error {
	if err := e.UpdateContext(e.params.RecallDriftRate, e.mem.ItemCue(item)); err != nil {
		return fmt.Errorf("recall item %d: %w", item, err)
	}
	e.recall = append(e.recall, item)
	e.recalled[item] = true
	return nil
}

// sample draws an outcome from p: the first slot whose cumulative
// probability exceeds a uniform variate. With no recallable item it stops
// without consuming a variate.
func (e *Engine) sample(p []float64) int {
	if !vecmath.AnyNonZero(p[1:]) {
		return 0
	}
	u := e.rng.Float64()
	var cum float64
	last := 0
	for i, pi := range p {
		if pi <= 0 {
			continue
		}
		cum += pi
		last = i
		if cum > u {
			return i
		}
	}
	return last
}

func (e *Engine) logStep(choice int, p []float64, forced bool) {
	d := logging.Decision{
		Engine:      string(e.Kind()),
		Episode:     e.episode,
		Step:        len(e.recall),
		Choice:      choice,
		Forced:      forced,
		RecallTotal: len(e.recall),
	}
	if p != nil {
		d.StopProbability = p[0]
		d.ChoiceProb = p[choice]
	}
	e.decisions.Log(d)
	e.logger.Log(context.Background(), logging.LevelTrace, "recall step",
		"engine", d.Engine, "episode", d.Episode, "step", d.Step, "choice", choice, "forced", forced)
}
