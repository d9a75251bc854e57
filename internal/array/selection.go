package array

import (
	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// AxisSlice is the resolved {start, end, stride} for one dimension, already
// validated against that dimension's extent.
type AxisSlice struct {
	Start, End, Stride int
}

// Size is the number of indices this slice selects.
func (s AxisSlice) Size() int {
	if s.End <= s.Start {
		return 0
	}
	return (s.End - s.Start + s.Stride - 1) / s.Stride
}

// Index maps a 0-based position within the slice to an index into the full
// dimension.
func (s AxisSlice) Index(i int) int { return s.Start + i*s.Stride }

// BuildSliceInfo resolves a request's optional per-dimension selection
// against shape, defaulting to a full, unit-stride slice per axis when the
// selection is absent. Fails with cmn.KindShapeInvalid on a length mismatch
// or an out-of-bounds slice.
func BuildSliceInfo(selection []cmn.Slice, shape []int) ([]AxisSlice, error) {
	if selection == nil {
		out := make([]AxisSlice, len(shape))
		for i, d := range shape {
			out[i] = AxisSlice{Start: 0, End: d, Stride: 1}
		}
		return out, nil
	}
	if len(selection) != len(shape) {
		return nil, cmn.NewError(cmn.KindShapeInvalid, "selection length %d does not match array rank %d", len(selection), len(shape))
	}
	out := make([]AxisSlice, len(selection))
	for i, s := range selection {
		if int(s.End) > shape[i] {
			return nil, cmn.NewError(cmn.KindShapeInvalid, "selection[%d] end %d exceeds dimension size %d", i, s.End, shape[i])
		}
		out[i] = AxisSlice{Start: int(s.Start), End: int(s.End), Stride: int(s.Stride)}
	}
	return out, nil
}

// SelectedShape returns the shape of the array after applying the per-axis
// selection.
func SelectedShape(sel []AxisSlice) []int {
	out := make([]int, len(sel))
	for i, s := range sel {
		out[i] = s.Size()
	}
	return out
}

// SelectedElementCount is the product of SelectedShape; zero if any axis is
// empty.
func SelectedElementCount(sel []AxisSlice) int {
	n := 1
	for _, s := range sel {
		n *= s.Size()
	}
	return n
}

// MapSelected converts a 0-based index into the selected space, per axis,
// to the corresponding index into the full array.
func MapSelected(sel []AxisSlice, selIdx []int) []int {
	out := make([]int, len(sel))
	for d, s := range sel {
		out[d] = s.Index(selIdx[d])
	}
	return out
}
