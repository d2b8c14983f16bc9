package cmr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametersFromMap(t *testing.T) {
	full := scenarioParams().Map(KindInstance)

	t.Run("instance round trip", func(t *testing.T) {
		p, err := ParametersFromMap(KindInstance, full)
		require.NoError(t, err)
		assert.Equal(t, scenarioParams(), p)
	})

	t.Run("learn_first non-zero is true", func(t *testing.T) {
		m := scenarioParams().Map(KindInstance)
		m["learn_first"] = 1
		p, err := ParametersFromMap(KindInstance, m)
		require.NoError(t, err)
		assert.True(t, p.LearnFirst)
	})

	t.Run("classic ignores instance keys", func(t *testing.T) {
		m := scenarioParams().Map(KindClassic)
		assert.NotContains(t, m, "learn_first")
		_, err := ParametersFromMap(KindClassic, m)
		require.NoError(t, err)
	})

	t.Run("instance requires sensitivities", func(t *testing.T) {
		m := scenarioParams().Map(KindClassic)
		_, err := ParametersFromMap(KindInstance, m)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingParameter))
		assert.Contains(t, err.Error(), "context_sensitivity")
	})

	t.Run("no defaults", func(t *testing.T) {
		m := scenarioParams().Map(KindClassic)
		delete(m, "recall_drift_rate")
		_, err := ParametersFromMap(KindClassic, m)
		assert.True(t, errors.Is(err, ErrMissingParameter))
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := ParametersFromMap(Kind("tcm"), full)
		assert.True(t, errors.Is(err, ErrUnknownKind))
	})
}

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Parameters)
		wantErr bool
	}{
		{"reference set", func(*Parameters) {}, false},
		{"drift above one is allowed", func(p *Parameters) { p.EncodingDriftRate = 1.4 }, false},
		{"negative drift", func(p *Parameters) { p.RecallDriftRate = -0.1 }, true},
		{"learning rate above one", func(p *Parameters) { p.LearningRate = 1.2 }, true},
		{"stop scale above one", func(p *Parameters) { p.StopProbabilityScale = 2 }, true},
		{"zero choice sensitivity", func(p *Parameters) { p.ChoiceSensitivity = 0 }, true},
		{"negative support", func(p *Parameters) { p.SharedSupport = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scenarioParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Instance ")
	require.NoError(t, err)
	assert.Equal(t, KindInstance, k)

	_, err = ParseKind("tcm")
	assert.True(t, errors.Is(err, ErrUnknownKind))

	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "retrieving", Retrieving.String())
	assert.Equal(t, "episode_state(7)", EpisodeState(7).String())
}

func TestItemFeatures(t *testing.T) {
	classic, err := ItemFeatures(KindClassic, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, classic)

	instance, err := ItemFeatures(KindInstance, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 0, 0, 0, 0, 0}, instance[1])

	list, err := StudyList(KindClassic, 2, []int{1, 1, 0})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, []float64{0, 1}, list[0])

	_, err = StudyList(KindClassic, 2, []int{2})
	assert.True(t, errors.Is(err, ErrInvalidDimensions))
	_, err = ItemFeatures(KindClassic, 0)
	assert.True(t, errors.Is(err, ErrInvalidDimensions))
}

func TestPrimacyGradient(t *testing.T) {
	g := primacyGradient(2, 1, 3)
	assert.InDeltaSlice(t, []float64{3, 2*0.36787944117144233 + 1, 2*0.1353352832366127 + 1}, g, 1e-12)
}
