package cmr

import (
	"fmt"
	"math"

	"github.com/nvandessel/cmr/internal/vecmath"
	"gonum.org/v1/gonum/mat"
)

// classicFloor is added to every matrix activation so no item has exactly
// zero support.
const classicFloor = 1e-6

// AssociativeMemory is the classic CMR store: Mfc maps item features onto
// context and Mcf maps context back onto item features.
type AssociativeMemory struct {
	itemCount    int
	learningRate float64
	primacy      []float64

	mfc *mat.Dense // itemCount x (itemCount+2)
	mcf *mat.Dense // (itemCount+2) x itemCount

	encodingIndex int
}

// NewAssociativeMemory builds the pre-experimental matrices.
//
// Mfc starts as the identity shifted one column right (so no item touches
// the start or delay dimension) scaled by 1-LearningRate. Mcf starts with
// ItemSupport on the diagonal and SharedSupport elsewhere, padded with zero
// rows for the start and delay dimensions.
func NewAssociativeMemory(itemCount, presentationCount int, p Parameters) (*AssociativeMemory, error) {
	if itemCount <= 0 || presentationCount <= 0 {
		return nil, fmt.Errorf("%w: item count %d, presentation count %d", ErrInvalidDimensions, itemCount, presentationCount)
	}
	width := itemCount + 2

	mfc := mat.NewDense(itemCount, width, nil)
	for i := 0; i < itemCount; i++ {
		mfc.Set(i, i+1, 1-p.LearningRate)
	}

	mcf := mat.NewDense(width, itemCount, nil)
	for i := 0; i < itemCount; i++ {
		for j := 0; j < itemCount; j++ {
			v := p.SharedSupport
			if i == j {
				v = p.ItemSupport
			}
			mcf.Set(i+1, j, v)
		}
	}

	return &AssociativeMemory{
		itemCount:    itemCount,
		learningRate: p.LearningRate,
		primacy:      primacyGradient(p.PrimacyScale, p.PrimacyDecay, presentationCount),
		mfc:          mfc,
		mcf:          mcf,
	}, nil
}

// Kind implements Memory.
func (m *AssociativeMemory) Kind() Kind { return KindClassic }

// FeatureWidth implements Memory. Item feature vectors have one slot per item.
func (m *AssociativeMemory) FeatureWidth() int { return m.itemCount }

// EncodingIndex implements Memory.
func (m *AssociativeMemory) EncodingIndex() int { return m.encodingIndex }

// Floor implements Memory.
func (m *AssociativeMemory) Floor() float64 { return classicFloor }

// DriftRate implements Memory. Classic drift rates are capped at 1.
func (m *AssociativeMemory) DriftRate(rate float64) float64 { return math.Min(rate, 1.0) }

// ItemCue implements Memory.
func (m *AssociativeMemory) ItemCue(item int) []float64 {
	return vecmath.OneHot(m.itemCount, item)
}

// Mfc returns a read-only view of the feature-to-context matrix.
func (m *AssociativeMemory) Mfc() mat.Matrix { return m.mfc }

// Mcf returns a read-only view of the context-to-feature matrix.
func (m *AssociativeMemory) Mcf() mat.Matrix { return m.mcf }

// Activations returns probe·Mfc (useMfc) or probe·Mcf, each raised by a
// small floor. A Mfc probe is an item feature vector; a Mcf probe is a context.
func (m *AssociativeMemory) Activations(probe []float64, useMfc bool) ([]float64, error) {
	want := m.itemCount + 2
	if useMfc {
		want = m.itemCount
	}
	if len(probe) != want {
		return nil, fmt.Errorf("activations: %w: probe width %d, want %d", ErrInvalidDimensions, len(probe), want)
	}
	return m.activations(probe, useMfc), nil
}

func (m *AssociativeMemory) activations(probe []float64, useMfc bool) []float64 {
	out := m.project(probe, useMfc)
	for i := range out {
		out[i] += classicFloor
	}
	return out
}

// project computes probe·M without the floor.
func (m *AssociativeMemory) project(probe []float64, useMfc bool) []float64 {
	w := m.mcf
	if useMfc {
		w = m.mfc
	}
	_, cols := w.Dims()
	out := make([]float64, cols)
	mat.NewVecDense(cols, out).MulVec(w.T(), mat.NewVecDense(len(probe), vecmath.Clone(probe)))
	return out
}

// ContextInput implements Memory. The item probe is projected through Mfc
// and normalized.
func (m *AssociativeMemory) ContextInput(probe []float64) ([]float64, error) {
	if len(probe) != m.itemCount {
		return nil, fmt.Errorf("context input: %w: probe width %d, want %d", ErrInvalidDimensions, len(probe), m.itemCount)
	}
	input := m.project(probe, true)
	if err := vecmath.Normalize(input); err != nil {
		return nil, fmt.Errorf("context input: %w: %v", ErrDegenerateVector, err)
	}
	return input, nil
}

// Encode implements Memory:
//
//	Mfc += LearningRate * features ⊗ context
//	Mcf += primacy[i]   * context ⊗ features
func (m *AssociativeMemory) Encode(features, context []float64) error {
	if m.encodingIndex >= len(m.primacy) {
		return fmt.Errorf("encode: %w: %d presentations", ErrCapacityExceeded, len(m.primacy))
	}
	if len(features) != m.itemCount || len(context) != m.itemCount+2 {
		return fmt.Errorf("encode: %w: features %d, context %d", ErrInvalidDimensions, len(features), len(context))
	}

	f := mat.NewVecDense(len(features), vecmath.Clone(features))
	c := mat.NewVecDense(len(context), vecmath.Clone(context))
	m.mfc.RankOne(m.mfc, m.learningRate, f, c)
	m.mcf.RankOne(m.mcf, m.primacy[m.encodingIndex], c, f)
	m.encodingIndex++
	return nil
}

// ItemActivations implements Memory.
func (m *AssociativeMemory) ItemActivations(context []float64) []float64 {
	return m.activations(context, false)
}
