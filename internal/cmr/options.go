package cmr

import (
	"log/slog"
	"math/rand/v2"

	"github.com/nvandessel/cmr/internal/logging"
)

// RandomSource supplies the uniform variates used to sample recall outcomes.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
}

// DefaultSeed seeds the generator of engines built without WithRand or WithSeed.
const DefaultSeed uint64 = 0

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source used for free recall.
func WithRand(r RandomSource) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithSeed uses a PCG generator seeded with seed.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = NewRand(seed)
	}
}

// WithLogger sets the operational logger. Episode transitions are logged at
// debug level and every retrieval step at logging.LevelTrace.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDecisionLogger records every retrieval choice as a JSONL decision.
func WithDecisionLogger(dl *logging.DecisionLogger) Option {
	return func(e *Engine) {
		e.decisions = dl
	}
}

// NewRand returns a PCG-backed generator for seed. Equal seeds produce
// equal sequences.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
