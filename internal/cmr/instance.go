package cmr

import (
	"fmt"
	"math"

	"github.com/nvandessel/cmr/internal/vecmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// instanceFloor is the probability floor of the instance engine.
const instanceFloor = 2.220446049250313e-16 // float64 machine epsilon

// InstanceMemory stores every encoding event as its own trace. Each trace
// row is an item-feature half followed by a context half, both itemCount+2
// wide. The first itemCount rows hold pre-experimental traces; presented
// traces follow in encoding order and are never rewritten.
type InstanceMemory struct {
	itemCount int
	half      int // itemCount + 2

	traces *mat.Dense
	norms  []float64

	itemWeighting    []float64
	contextWeighting []float64
	allWeighting     []float64

	contextSensitivity float64
	featureSensitivity float64
	learnFirst         bool

	encodingIndex int
}

// NewInstanceMemory builds the trace matrix with the pre-experimental rows
// filled in. Pre-experimental row i is the classic Mfc row i beside the
// classic Mcf column i (with its start and delay padding).
func NewInstanceMemory(itemCount, presentationCount int, p Parameters) (*InstanceMemory, error) {
	if itemCount <= 0 || presentationCount <= 0 {
		return nil, fmt.Errorf("%w: item count %d, presentation count %d", ErrInvalidDimensions, itemCount, presentationCount)
	}
	half := itemCount + 2
	rows := itemCount + presentationCount

	traces := mat.NewDense(rows, 2*half, nil)
	for i := 0; i < itemCount; i++ {
		traces.Set(i, i+1, 1-p.LearningRate)
		for j := 0; j < itemCount; j++ {
			v := p.SharedSupport
			if i == j {
				v = p.ItemSupport
			}
			traces.Set(i, half+j+1, v)
		}
	}

	norms := make([]float64, rows)
	for i := 0; i < itemCount; i++ {
		norms[i] = floats.Norm(traces.RawRowView(i), 2)
	}

	itemWeighting := make([]float64, rows)
	contextWeighting := make([]float64, rows)
	primacy := primacyGradient(p.PrimacyScale, p.PrimacyDecay, presentationCount)
	for i := range itemWeighting {
		if i < itemCount {
			itemWeighting[i], contextWeighting[i] = 1, 1
			continue
		}
		itemWeighting[i] = p.LearningRate
		contextWeighting[i] = primacy[i-itemCount]
	}
	allWeighting := make([]float64, rows)
	floats.MulTo(allWeighting, itemWeighting, contextWeighting)

	return &InstanceMemory{
		itemCount:          itemCount,
		half:               half,
		traces:             traces,
		norms:              norms,
		itemWeighting:      itemWeighting,
		contextWeighting:   contextWeighting,
		allWeighting:       allWeighting,
		contextSensitivity: p.ContextSensitivity,
		featureSensitivity: p.FeatureSensitivity,
		learnFirst:         p.LearnFirst,
		encodingIndex:      itemCount,
	}, nil
}

// Kind implements Memory.
func (m *InstanceMemory) Kind() Kind { return KindInstance }

// FeatureWidth implements Memory. Encoding inputs are full trace rows.
func (m *InstanceMemory) FeatureWidth() int { return 2 * m.half }

// EncodingIndex implements Memory. It starts at the item count because the
// pre-experimental traces occupy the first rows.
func (m *InstanceMemory) EncodingIndex() int { return m.encodingIndex }

// Floor implements Memory.
func (m *InstanceMemory) Floor() float64 { return instanceFloor }

// DriftRate implements Memory. Instance drift rates are used as given.
func (m *InstanceMemory) DriftRate(rate float64) float64 { return rate }

// ItemCue implements Memory.
func (m *InstanceMemory) ItemCue(item int) []float64 {
	return vecmath.OneHot(2*m.half, item+1)
}

// Traces returns a read-only view of the rows written so far.
func (m *InstanceMemory) Traces() mat.Matrix {
	return m.stored()
}

// Norms returns a copy of the cached norms of the rows written so far.
func (m *InstanceMemory) Norms() []float64 {
	return vecmath.Clone(m.norms[:m.encodingIndex])
}

func (m *InstanceMemory) stored() *mat.Dense {
	return m.traces.Slice(0, m.encodingIndex, 0, 2*m.half).(*mat.Dense)
}

// Activations returns the similarity of probe to every stored trace,
// normalized by trace norm times probeNorm and shaped by the probe type:
//
//   - context-only probe: context weighting, context sensitivity
//   - item-only probe: item weighting, feature sensitivity
//   - probe in both halves: both weightings, feature sensitivity
//
// Weighting is applied before the exponent unless learn_first is set. The
// order is the same for every cue type, so learn_first also moves the
// context weighting of a context-only cue after its exponent.
func (m *InstanceMemory) Activations(probe []float64, probeNorm float64) ([]float64, error) {
	if len(probe) != 2*m.half {
		return nil, fmt.Errorf("activations: %w: probe width %d, want %d", ErrInvalidDimensions, len(probe), 2*m.half)
	}
	if probeNorm == 0 {
		return nil, fmt.Errorf("activations: %w: zero probe norm", ErrDegenerateVector)
	}
	return m.activations(probe, probeNorm), nil
}

func (m *InstanceMemory) activations(probe []float64, probeNorm float64) []float64 {
	n := m.encodingIndex
	act := make([]float64, n)
	mat.NewVecDense(n, act).MulVec(m.stored(), mat.NewVecDense(len(probe), vecmath.Clone(probe)))
	for i := range act {
		if m.norms[i] == 0 {
			act[i] = 0
			continue
		}
		act[i] /= m.norms[i] * probeNorm
	}

	itemCue := vecmath.AnyNonZero(probe[:m.half])
	contextCue := vecmath.AnyNonZero(probe[m.half:])

	var weights []float64
	var exponent float64
	switch {
	case itemCue && contextCue:
		weights, exponent = m.allWeighting[:n], m.featureSensitivity
	case itemCue:
		weights, exponent = m.itemWeighting[:n], m.featureSensitivity
	default:
		weights, exponent = m.contextWeighting[:n], m.contextSensitivity
	}

	for i := range act {
		if m.learnFirst {
			act[i] = vecmath.Power(act[i], exponent) * weights[i]
		} else {
			act[i] = vecmath.Power(act[i]*weights[i], exponent)
		}
	}
	return act
}

// Echo returns the activation-weighted sum of all stored traces.
func (m *InstanceMemory) Echo(probe []float64) ([]float64, error) {
	if len(probe) != 2*m.half {
		return nil, fmt.Errorf("echo: %w: probe width %d, want %d", ErrInvalidDimensions, len(probe), 2*m.half)
	}
	return m.echo(probe), nil
}

func (m *InstanceMemory) echo(probe []float64) []float64 {
	act := m.activations(probe, 1.0)
	out := make([]float64, 2*m.half)
	mat.NewVecDense(len(out), out).MulVec(m.stored().T(), mat.NewVecDense(len(act), act))
	return out
}

// ContextInput implements Memory. The context half of the echo is normalized.
func (m *InstanceMemory) ContextInput(probe []float64) ([]float64, error) {
	if len(probe) != 2*m.half {
		return nil, fmt.Errorf("context input: %w: probe width %d, want %d", ErrInvalidDimensions, len(probe), 2*m.half)
	}
	input := m.echo(probe)[m.half:]
	if err := vecmath.Normalize(input); err != nil {
		return nil, fmt.Errorf("context input: %w: %v", ErrDegenerateVector, err)
	}
	return input, nil
}

// Encode implements Memory. The trace keeps the item half of features and
// takes context as its context half.
func (m *InstanceMemory) Encode(features, context []float64) error {
	rows, _ := m.traces.Dims()
	if m.encodingIndex >= rows {
		return fmt.Errorf("encode: %w: %d presentations", ErrCapacityExceeded, rows-m.itemCount)
	}
	if len(features) != 2*m.half || len(context) != m.half {
		return fmt.Errorf("encode: %w: features %d, context %d", ErrInvalidDimensions, len(features), len(context))
	}

	row := m.traces.RawRowView(m.encodingIndex)
	copy(row[:m.half], features[:m.half])
	copy(row[m.half:], context)
	norm := floats.Norm(row, 2)
	if norm == 0 || math.IsNaN(norm) {
		clear(row)
		return fmt.Errorf("encode: %w: zero trace", ErrDegenerateVector)
	}
	m.norms[m.encodingIndex] = norm
	m.encodingIndex++
	return nil
}

// ItemActivations implements Memory. Context cues the item half of the echo.
func (m *InstanceMemory) ItemActivations(context []float64) []float64 {
	cue := make([]float64, 2*m.half)
	copy(cue[m.half:], context)
	return m.echo(cue)[1 : m.itemCount+1]
}
