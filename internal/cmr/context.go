package cmr

import (
	"fmt"
	"math"

	"github.com/nvandessel/cmr/internal/vecmath"
	"gonum.org/v1/gonum/floats"
)

// Drift blends a unit-length input into a unit-length context:
//
//	rho = sqrt(1 + beta^2 * ((c.in)^2 - 1)) - beta * (c.in)
//	c   = rho*c + beta*in
//
// followed by renormalization. For beta in [0, 1] and unit inputs the blend
// already has unit length; renormalizing keeps beta > 1 well defined. When
// beta > 1 drives the radicand negative it is clamped at zero, so the new
// context points along the input.
//
// context is updated in place only on success.
func Drift(context, input []float64, beta float64) error {
	if len(context) != len(input) {
		return fmt.Errorf("drift: %w: context width %d, input width %d", ErrInvalidDimensions, len(context), len(input))
	}
	if beta == 0 {
		return nil
	}

	dot := floats.Dot(context, input)
	radicand := 1 + beta*beta*(dot*dot-1)
	if radicand < 0 {
		radicand = 0
	}
	rho := math.Sqrt(radicand) - beta*dot

	next := make([]float64, len(context))
	floats.ScaleTo(next, rho, context)
	floats.AddScaled(next, beta, input)
	if err := vecmath.Normalize(next); err != nil {
		return fmt.Errorf("drift: %w: %v", ErrDegenerateVector, err)
	}
	copy(context, next)
	return nil
}

// reinstatementCues returns the fixed start-of-list and delay context inputs.
// They point along the two dimensions no item ever maps onto.
func reinstatementCues(itemCount int) (start, delay []float64) {
	width := itemCount + 2
	return vecmath.OneHot(width, 0), vecmath.OneHot(width, width-1)
}
