package cmr

import "errors"

var (
	// ErrInvalidDimensions is returned when a count or vector width does not
	// match what the engine was built for.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrCapacityExceeded is returned when encoding more presentations than
	// the engine was sized for.
	ErrCapacityExceeded = errors.New("presentation capacity exceeded")

	// ErrChoiceOutOfRange is returned by ForceRecall for item indices beyond
	// the item count.
	ErrChoiceOutOfRange = errors.New("recall choice out of range")

	// ErrAlreadyRecalled is returned by ForceRecall for an item already in
	// the current recall sequence.
	ErrAlreadyRecalled = errors.New("item already recalled")

	// ErrDegenerateVector is returned when a context update would divide by
	// a zero norm, which means the caller supplied a probe memory cannot answer.
	ErrDegenerateVector = errors.New("degenerate vector")

	// ErrMissingParameter is returned when a named parameter set lacks a
	// required key.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrUnknownKind is returned for an unrecognized engine kind.
	ErrUnknownKind = errors.New("unknown engine kind")
)
