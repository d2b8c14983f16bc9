package cmr

import "fmt"

// ItemFeatures returns the one-hot encoding input of every item in the
// layout the given engine kind expects: itemCount wide for classic engines,
// a full trace row (item half one-hot at item+1, zero context half) for
// instance engines.
func ItemFeatures(kind Kind, itemCount int) ([][]float64, error) {
	if itemCount <= 0 {
		return nil, fmt.Errorf("%w: item count %d", ErrInvalidDimensions, itemCount)
	}
	out := make([][]float64, itemCount)
	for i := range out {
		switch kind {
		case KindClassic:
			out[i] = make([]float64, itemCount)
			out[i][i] = 1
		case KindInstance:
			out[i] = make([]float64, 2*(itemCount+2))
			out[i][i+1] = 1
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
		}
	}
	return out, nil
}

// StudyList returns the encoding inputs for presenting items in order.
func StudyList(kind Kind, itemCount int, order []int) ([][]float64, error) {
	features, err := ItemFeatures(kind, itemCount)
	if err != nil {
		return nil, err
	}
	list := make([][]float64, len(order))
	for i, item := range order {
		if item < 0 || item >= itemCount {
			return nil, fmt.Errorf("%w: presentation %d names item %d of %d", ErrInvalidDimensions, i, item, itemCount)
		}
		list[i] = features[item]
	}
	return list, nil
}
