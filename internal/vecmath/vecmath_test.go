package vecmath

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{"identical vectors", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		{"orthogonal vectors", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"opposite vectors", []float64{1, 2, 3}, []float64{-1, -2, -3}, -1.0},
		{"different lengths", []float64{1, 2}, []float64{1, 2, 3}, 0.0},
		{"empty vectors", []float64{}, []float64{}, 0.0},
		{"nil vectors", nil, nil, 0.0},
		{"zero magnitude vector", []float64{0, 0, 0}, []float64{1, 2, 3}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-12)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		vec     []float64
		want    float64
		wantErr bool
	}{
		{"standard vector", []float64{3, 4}, 1.0, false},
		{"already normalized", []float64{1, 0, 0}, 1.0, false},
		{"zero vector unchanged", []float64{0, 0, 0}, 0.0, true},
		{"nan vector rejected", []float64{math.NaN(), 1}, math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Normalize(tt.vec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrZeroVector))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, Norm(tt.vec), 1e-12)
		})
	}
}

func TestPower(t *testing.T) {
	assert.Equal(t, 0.0, Power(-0.5, 0.5))
	assert.Equal(t, 0.0, Power(0, 2))
	assert.InDelta(t, 4.0, Power(2, 2), 1e-12)
	assert.InDelta(t, math.Sqrt(2), Power(2, 0.5), 1e-12)

	// zero exponent matches math.Pow for every base
	assert.Equal(t, 1.0, Power(0, 0))
	assert.Equal(t, 1.0, Power(-1, 0))
	assert.Equal(t, 1.0, Power(3, 0))
}

func TestOneHotAndAnyNonZero(t *testing.T) {
	v := OneHot(4, 2)
	assert.Equal(t, []float64{0, 0, 1, 0}, v)
	assert.True(t, AnyNonZero(v))
	assert.False(t, AnyNonZero(make([]float64, 3)))

	c := Clone(v)
	c[0] = 9
	assert.Equal(t, 0.0, v[0])
}
