// Package vecmath provides small dense-vector helpers shared by the memory
// engines. The heavy lifting is delegated to gonum's floats package.
package vecmath

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrZeroVector is returned when a vector with zero magnitude would have to
// be divided by its norm.
var ErrZeroVector = errors.New("zero magnitude vector")

// Norm returns the Euclidean length of v.
func Norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// Normalize scales v in place to unit length.
// A zero or non-finite magnitude leaves v untouched and returns ErrZeroVector.
func Normalize(v []float64) error {
	n := Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return ErrZeroVector
	}
	floats.Scale(1/n, v)
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths, empty input, and zero vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// AnyNonZero reports whether any element of v differs from zero.
func AnyNonZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return true
		}
	}
	return false
}

// OneHot returns a vector of the given width with a single 1 at index.
func OneHot(width, index int) []float64 {
	v := make([]float64, width)
	v[index] = 1
	return v
}

// Clone returns a copy of v.
func Clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Power raises x to the exponent e, treating non-positive bases as zero so
// fractional exponents never produce NaN. A zero exponent gives 1 for every
// base, as math.Pow does.
func Power(x, e float64) float64 {
	if e == 0 {
		return 1
	}
	if x <= 0 {
		return 0
	}
	return math.Pow(x, e)
}
