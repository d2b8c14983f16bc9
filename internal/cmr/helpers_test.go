package cmr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scenarioParams is the reference three-item parameter set.
func scenarioParams() Parameters {
	return Parameters{
		EncodingDriftRate:     0.8,
		StartDriftRate:        0.8,
		RecallDriftRate:       0.8,
		DelayDriftRate:        0.8,
		SharedSupport:         0.1,
		ItemSupport:           1.5,
		LearningRate:          0.5,
		PrimacyScale:          2.0,
		PrimacyDecay:          1.0,
		StopProbabilityScale:  0.05,
		StopProbabilityGrowth: 0.1,
		ChoiceSensitivity:     2.0,
		ContextSensitivity:    1.0,
		FeatureSensitivity:    1.0,
		LearnFirst:            false,
	}
}

var allKinds = []Kind{KindClassic, KindInstance}

// newEncodedEngine builds an engine and encodes items 0..n-1 once each.
func newEncodedEngine(t *testing.T, kind Kind, n int, params Parameters, opts ...Option) *Engine {
	t.Helper()
	eng, err := New(kind, n, n, params, opts...)
	require.NoError(t, err)
	features, err := ItemFeatures(kind, n)
	require.NoError(t, err)
	require.NoError(t, eng.Experience(features))
	return eng
}

// scriptedSource replays fixed variates, then repeats the last one.
type scriptedSource struct {
	values []float64
	next   int
}

func (s *scriptedSource) Float64() float64 {
	v := s.values[min(s.next, len(s.values)-1)]
	s.next++
	return v
}

func sum(v []float64) float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	return total
}
