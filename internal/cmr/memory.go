package cmr

// Memory is a long-term store the retrieval controller reads and writes.
// AssociativeMemory and InstanceMemory are the two implementations.
type Memory interface {
	// Kind names the realization.
	Kind() Kind

	// FeatureWidth is the width of an encoding input and of an item cue.
	FeatureWidth() int

	// ContextInput reads the unit-length context input retrieved by probe.
	ContextInput(probe []float64) ([]float64, error)

	// Encode associates features with context at the next encoding position.
	Encode(features, context []float64) error

	// ItemActivations returns the support for each item given context.
	ItemActivations(context []float64) []float64

	// ItemCue returns the retrieval cue presented when item is recalled.
	ItemCue(item int) []float64

	// EncodingIndex is the next memory position to be written.
	EncodingIndex() int

	// Floor is the smallest probability an eligible item keeps.
	Floor() float64

	// DriftRate adjusts a drift rate before it is applied to context.
	DriftRate(rate float64) float64
}
