package cmr

import (
	"fmt"
	"strings"
)

// Kind selects the memory realization behind an Engine.
type Kind string

const (
	// KindClassic stores associations in the Mfc and Mcf weight matrices.
	KindClassic Kind = "classic"
	// KindInstance stores one trace per item and presentation.
	KindInstance Kind = "instance"
)

// Valid reports whether k names a known engine kind.
func (k Kind) Valid() bool {
	return k == KindClassic || k == KindInstance
}

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q (valid: classic, instance)", ErrUnknownKind, s)
	}
	return k, nil
}

// EpisodeState is the retrieval state machine of an Engine.
type EpisodeState int

const (
	// Idle means no recall episode is open; the next recall call opens one.
	Idle EpisodeState = iota
	// Retrieving means an episode is open and recalls accumulate.
	Retrieving
)

// String returns the state name.
func (s EpisodeState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Retrieving:
		return "retrieving"
	default:
		return fmt.Sprintf("episode_state(%d)", int(s))
	}
}
