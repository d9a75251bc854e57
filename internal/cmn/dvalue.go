package cmn

import (
	"fmt"
	"math"
)

// DValue is a finite JSON numeric literal (never NaN, never ±Inf) that has
// not yet been narrowed to a concrete element type. It is the wire type for
// "missing" descriptors; internal code narrows it to Missing[T] once the
// request's DType is known.
type DValue struct {
	f float64
}

// NewDValue wraps a finite float64 as a DValue. Callers that decode from
// JSON should reject NaN/Inf before calling this (json-iterator already
// refuses to decode them, since JSON has no literal for either).
func NewDValue(f float64) (DValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return DValue{}, fmt.Errorf("missing value literal must be finite, got %v", f)
	}
	return DValue{f: f}, nil
}

func (v DValue) Float64() float64 { return v.f }

func (v *DValue) UnmarshalJSON(b []byte) error {
	var f float64
	if err := jsonFloat(b, &f); err != nil {
		return err
	}
	d, err := NewDValue(f)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

func jsonFloat(b []byte, out *float64) error {
	var f float64
	if _, err := fmt.Sscanf(string(b), "%g", &f); err != nil {
		return fmt.Errorf("invalid numeric literal %q: %w", b, err)
	}
	*out = f
	return nil
}

// NarrowDValue narrows v to the concrete Element type T, failing if the
// value is out of T's representable range or would lose precision. Narrowing
// to float32 additionally rejects values that become ±Inf after the cast,
// matching the rule for DValue narrowing stated in the data model.
func NarrowDValue[T Element](v DValue) (T, error) {
	var zero T
	switch any(zero).(type) {
	case int32:
		i, err := narrowSigned(v.f, math.MinInt32, math.MaxInt32)
		if err != nil {
			return zero, err
		}
		return any(int32(i)).(T), nil
	case int64:
		i, err := narrowSigned(v.f, math.MinInt64, math.MaxInt64)
		if err != nil {
			return zero, err
		}
		return any(i).(T), nil
	case uint32:
		u, err := narrowUnsigned(v.f, math.MaxUint32)
		if err != nil {
			return zero, err
		}
		return any(uint32(u)).(T), nil
	case uint64:
		u, err := narrowUnsigned(v.f, math.MaxUint64)
		if err != nil {
			return zero, err
		}
		return any(u).(T), nil
	case float32:
		f32 := float32(v.f)
		if math.IsInf(float64(f32), 0) {
			return zero, fmt.Errorf("%w: %v overflows float32", ErrIncompatibleMissing, v.f)
		}
		return any(f32).(T), nil
	case float64:
		return any(v.f).(T), nil
	default:
		return zero, fmt.Errorf("%w: unsupported element type", ErrIncompatibleMissing)
	}
}

func narrowSigned(f float64, lo, hi float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrIncompatibleMissing, f)
	}
	if f < lo || f > hi {
		return 0, fmt.Errorf("%w: %v out of range", ErrIncompatibleMissing, f)
	}
	return int64(f), nil
}

func narrowUnsigned(f float64, hi float64) (uint64, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrIncompatibleMissing, f)
	}
	if f < 0 || f > hi {
		return 0, fmt.Errorf("%w: %v out of range", ErrIncompatibleMissing, f)
	}
	return uint64(f), nil
}
