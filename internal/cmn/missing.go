package cmn

import "fmt"

// MissingKind tags which variant of Missing[T] is populated.
type MissingKind int

const (
	MissingValue MissingKind = iota
	MissingValues
	MissingValidMin
	MissingValidMax
	MissingValidRange
)

// Missing describes which elements of an array are semantically absent, at
// the reduction level (T = a concrete Element). The wire-level form, before
// narrowing, is WireMissing.
type Missing[T Element] struct {
	Kind   MissingKind
	Value  T
	Values []T
	Min    T
	Max    T
}

// IsMissing reports whether x is excluded by the descriptor.
func (m Missing[T]) IsMissing(x T) bool {
	switch m.Kind {
	case MissingValue:
		return x == m.Value
	case MissingValues:
		for _, v := range m.Values {
			if x == v {
				return true
			}
		}
		return false
	case MissingValidMin:
		return x < m.Min
	case MissingValidMax:
		return x > m.Max
	case MissingValidRange:
		return x < m.Min || x > m.Max
	default:
		return false
	}
}

// WireMissing is the JSON shape of a Missing descriptor before narrowing:
// exactly one of the fields below is populated, selected by which JSON keys
// are present in the request body.
type WireMissing struct {
	MissingValue  *DValue   `json:"missing_value,omitempty"`
	MissingValues []DValue  `json:"missing_values,omitempty"`
	ValidMin      *DValue   `json:"valid_min,omitempty"`
	ValidMax      *DValue   `json:"valid_max,omitempty"`
	ValidRange    *[2]DValue `json:"valid_range,omitempty"`
}

// Validate checks that exactly one variant is populated and that any range
// is well formed (min < max).
func (w *WireMissing) Validate() error {
	count := 0
	if w.MissingValue != nil {
		count++
	}
	if w.MissingValues != nil {
		count++
	}
	if w.ValidMin != nil {
		count++
	}
	if w.ValidMax != nil {
		count++
	}
	if w.ValidRange != nil {
		count++
		if w.ValidRange[0].Float64() >= w.ValidRange[1].Float64() {
			return fmt.Errorf("valid_range min must be less than max")
		}
	}
	if count != 1 {
		return fmt.Errorf("missing descriptor must set exactly one of missing_value, missing_values, valid_min, valid_max, valid_range")
	}
	return nil
}

// NarrowMissing converts the wire-level descriptor to Missing[T], narrowing every
// DValue it carries. Returns ErrIncompatibleMissing on any value that fails
// to narrow to T.
func NarrowMissing[T Element](w *WireMissing) (Missing[T], error) {
	switch {
	case w.MissingValue != nil:
		v, err := NarrowDValue[T](*w.MissingValue)
		if err != nil {
			return Missing[T]{}, err
		}
		return Missing[T]{Kind: MissingValue, Value: v}, nil
	case w.MissingValues != nil:
		vs := make([]T, len(w.MissingValues))
		for i, dv := range w.MissingValues {
			v, err := NarrowDValue[T](dv)
			if err != nil {
				return Missing[T]{}, err
			}
			vs[i] = v
		}
		return Missing[T]{Kind: MissingValues, Values: vs}, nil
	case w.ValidMin != nil:
		v, err := NarrowDValue[T](*w.ValidMin)
		if err != nil {
			return Missing[T]{}, err
		}
		return Missing[T]{Kind: MissingValidMin, Min: v}, nil
	case w.ValidMax != nil:
		v, err := NarrowDValue[T](*w.ValidMax)
		if err != nil {
			return Missing[T]{}, err
		}
		return Missing[T]{Kind: MissingValidMax, Max: v}, nil
	case w.ValidRange != nil:
		lo, err := NarrowDValue[T](w.ValidRange[0])
		if err != nil {
			return Missing[T]{}, err
		}
		hi, err := NarrowDValue[T](w.ValidRange[1])
		if err != nil {
			return Missing[T]{}, err
		}
		return Missing[T]{Kind: MissingValidRange, Min: lo, Max: hi}, nil
	default:
		return Missing[T]{}, fmt.Errorf("%w: no missing descriptor populated", ErrIncompatibleMissing)
	}
}
