package cmr

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Parameters is the fixed set of model coefficients. An engine copies its
// Parameters at construction; later changes to the caller's value have no
// effect.
type Parameters struct {
	EncodingDriftRate float64 `json:"encoding_drift_rate" yaml:"encoding_drift_rate" validate:"gte=0"`
	StartDriftRate    float64 `json:"start_drift_rate" yaml:"start_drift_rate" validate:"gte=0"`
	RecallDriftRate   float64 `json:"recall_drift_rate" yaml:"recall_drift_rate" validate:"gte=0"`
	DelayDriftRate    float64 `json:"delay_drift_rate" yaml:"delay_drift_rate" validate:"gte=0"`

	// SharedSupport is the pre-experimental Mcf strength between different items.
	SharedSupport float64 `json:"shared_support" yaml:"shared_support" validate:"gte=0"`
	// ItemSupport is the pre-experimental Mcf strength of an item with itself.
	ItemSupport float64 `json:"item_support" yaml:"item_support" validate:"gte=0"`
	// LearningRate scales new Mfc associations; pre-experimental Mfc is 1-LearningRate.
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate" validate:"gte=0,lte=1"`

	PrimacyScale float64 `json:"primacy_scale" yaml:"primacy_scale" validate:"gte=0"`
	PrimacyDecay float64 `json:"primacy_decay" yaml:"primacy_decay" validate:"gte=0"`

	StopProbabilityScale  float64 `json:"stop_probability_scale" yaml:"stop_probability_scale" validate:"gte=0,lte=1"`
	StopProbabilityGrowth float64 `json:"stop_probability_growth" yaml:"stop_probability_growth" validate:"gte=0"`

	// ChoiceSensitivity is the exponent of the Luce choice rule.
	ChoiceSensitivity float64 `json:"choice_sensitivity" yaml:"choice_sensitivity" validate:"gt=0"`

	// Instance-only parameters.
	ContextSensitivity float64 `json:"context_sensitivity,omitempty" yaml:"context_sensitivity,omitempty" validate:"gte=0"`
	FeatureSensitivity float64 `json:"feature_sensitivity,omitempty" yaml:"feature_sensitivity,omitempty" validate:"gte=0"`
	// LearnFirst selects exponentiation before trace weighting in instance activations.
	LearnFirst bool `json:"learn_first,omitempty" yaml:"learn_first,omitempty"`
}

var paramValidate = validator.New()

// Validate checks parameter ranges.
func (p Parameters) Validate() error {
	if err := paramValidate.Struct(p); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// baseParameterNames lists the parameters every engine requires.
var baseParameterNames = []string{
	"encoding_drift_rate",
	"start_drift_rate",
	"recall_drift_rate",
	"delay_drift_rate",
	"shared_support",
	"item_support",
	"learning_rate",
	"primacy_scale",
	"primacy_decay",
	"stop_probability_scale",
	"stop_probability_growth",
	"choice_sensitivity",
}

// instanceParameterNames lists the additional parameters of the instance engine.
var instanceParameterNames = []string{
	"context_sensitivity",
	"feature_sensitivity",
	"learn_first",
}

// RequiredParameters returns the parameter names an engine of the given kind needs.
func RequiredParameters(kind Kind) []string {
	names := append([]string(nil), baseParameterNames...)
	if kind == KindInstance {
		names = append(names, instanceParameterNames...)
	}
	return names
}

// ParametersFromMap builds Parameters from a named scalar set. Every name
// from RequiredParameters(kind) must be present; there are no defaults.
// learn_first is true for any non-zero value. Unknown names are ignored.
func ParametersFromMap(kind Kind, values map[string]float64) (Parameters, error) {
	if !kind.Valid() {
		return Parameters{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}

	var missing []string
	for _, name := range RequiredParameters(kind) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Parameters{}, fmt.Errorf("%w: %v", ErrMissingParameter, missing)
	}

	p := Parameters{
		EncodingDriftRate:     values["encoding_drift_rate"],
		StartDriftRate:        values["start_drift_rate"],
		RecallDriftRate:       values["recall_drift_rate"],
		DelayDriftRate:        values["delay_drift_rate"],
		SharedSupport:         values["shared_support"],
		ItemSupport:           values["item_support"],
		LearningRate:          values["learning_rate"],
		PrimacyScale:          values["primacy_scale"],
		PrimacyDecay:          values["primacy_decay"],
		StopProbabilityScale:  values["stop_probability_scale"],
		StopProbabilityGrowth: values["stop_probability_growth"],
		ChoiceSensitivity:     values["choice_sensitivity"],
		ContextSensitivity:    values["context_sensitivity"],
		FeatureSensitivity:    values["feature_sensitivity"],
		LearnFirst:            values["learn_first"] != 0,
	}
	return p, p.Validate()
}

// Map returns p as a named scalar set, the inverse of ParametersFromMap.
func (p Parameters) Map(kind Kind) map[string]float64 {
	m := map[string]float64{
		"encoding_drift_rate":     p.EncodingDriftRate,
		"start_drift_rate":        p.StartDriftRate,
		"recall_drift_rate":       p.RecallDriftRate,
		"delay_drift_rate":        p.DelayDriftRate,
		"shared_support":          p.SharedSupport,
		"item_support":            p.ItemSupport,
		"learning_rate":           p.LearningRate,
		"primacy_scale":           p.PrimacyScale,
		"primacy_decay":           p.PrimacyDecay,
		"stop_probability_scale":  p.StopProbabilityScale,
		"stop_probability_growth": p.StopProbabilityGrowth,
		"choice_sensitivity":      p.ChoiceSensitivity,
	}
	if kind == KindInstance {
		m["context_sensitivity"] = p.ContextSensitivity
		m["feature_sensitivity"] = p.FeatureSensitivity
		m["learn_first"] = 0
		if p.LearnFirst {
			m["learn_first"] = 1
		}
	}
	return m
}

// primacyGradient returns scale*exp(-decay*i)+1 for each encoding position i.
func primacyGradient(scale, decay float64, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = scale*math.Exp(-decay*float64(i)) + 1
	}
	return out
}
