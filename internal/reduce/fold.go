// Package reduce implements the type-dispatched, axis-aware, missing-aware
// reduction engine: Count, Min, Max, Sum, Mean and Select. Grounded on
// original_source/src/operations.rs and operation.rs — one type-erased
// Operation.Execute dispatching on DType to a generic executeT[T].
package reduce

import (
	"math"

	"github.com/stackhpc/reductionist-go/internal/array"
	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// Operation is the type-erased entry point every /v1/* handler calls.
type Operation interface {
	Execute(req *cmn.RequestData, data []byte) (*cmn.Response, error)
}

// registry maps the six HTTP operation names to their implementation. The
// server package uses this to wire routes without each handler needing to
// know the concrete Operation type.
var registry = map[string]Operation{
	"count":  Count{},
	"min":    Min{},
	"max":    Max{},
	"sum":    Sum{},
	"mean":   Mean{},
	"select": Select{},
}

// Lookup returns the Operation registered for name, or nil.
func Lookup(name string) Operation { return registry[name] }

// reducedMask returns, for a selection of the given rank, which axes are
// collapsed by axis.
func reducedMask(axis cmn.ReductionAxes, rank int) []bool {
	reduced := make([]bool, rank)
	switch axis.Kind {
	case cmn.AxisAll:
		for i := range reduced {
			reduced[i] = true
		}
	case cmn.AxisOne:
		if int(axis.One) < rank {
			reduced[axis.One] = true
		}
	case cmn.AxisMulti:
		for _, a := range axis.Multi {
			if int(a) < rank {
				reduced[a] = true
			}
		}
	}
	return reduced
}

func outputShape(selShape []int, reduced []bool) []int {
	out := make([]int, 0, len(selShape))
	for i, r := range reduced {
		if !r {
			out = append(out, selShape[i])
		}
	}
	return out
}

func outputSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// isZeroAxisReduction reports the degenerate "reduce over no axes" request:
// an explicit empty axis list. Grounded on operations.rs's
// reduction_over_zero_axes, shared identically by every op: every selected
// element passes through unchanged, with a per-element count of 1 where
// non-missing and 0 where missing, and the op's own accumulator is never
// invoked (so a missing or NaN element can never fail the request here).
func isZeroAxisReduction(axis cmn.ReductionAxes) bool {
	return axis.Kind == cmn.AxisMulti && len(axis.Multi) == 0
}

// foldAxes walks every selected element of view exactly once, grouping by
// the axes kept (not reduced) by axis, and folds each group through update.
// cells[i] starts at initCell() and ends at the fold of every element
// mapping to output cell i. This is the single engine behind Count, Min,
// Max and Sum; Mean is built on Sum's fold, while Select walks the
// selection directly without it.
//
// identity implements the axis=Multi([]) corner case: it wraps each
// selected element directly into a cell, bypassing update/initCell
// entirely, matching the shared op-agnostic behaviour described above.
func foldAxes[T cmn.Element, A any](
	view *array.View[T],
	sel []array.AxisSlice,
	axis cmn.ReductionAxes,
	missing *cmn.Missing[T],
	initCell func() A,
	update func(acc A, x T, isMissing bool) (A, error),
	identity func(x T, isMissing bool) A,
) (cells []A, shape []int, err error) {
	selShape := array.SelectedShape(sel)
	rank := len(selShape)
	reduced := reducedMask(axis, rank)
	shape = outputShape(selShape, reduced)
	total := array.SelectedElementCount(sel)

	if isZeroAxisReduction(axis) {
		cells = make([]A, total)
		for n := 0; n < total; n++ {
			idx := array.Unravel(n, selShape)
			full := array.MapSelected(sel, idx)
			value := view.At(full)
			isMissing := missing != nil && missing.IsMissing(value)
			cells[n] = identity(value, isMissing)
		}
		return cells, shape, nil
	}

	cells = make([]A, outputSize(shape))
	for i := range cells {
		cells[i] = initCell()
	}

	outIdx := make([]int, 0, rank)
	for n := 0; n < total; n++ {
		idx := array.Unravel(n, selShape)
		full := array.MapSelected(sel, idx)
		value := view.At(full)
		isMissing := missing != nil && missing.IsMissing(value)

		outIdx = outIdx[:0]
		for d, r := range reduced {
			if !r {
				outIdx = append(outIdx, idx[d])
			}
		}
		flat := array.Ravel(outIdx, shape)
		cells[flat], err = update(cells[flat], value, isMissing)
		if err != nil {
			return nil, nil, err
		}
	}
	return cells, shape, nil
}

func isNaN[T cmn.Element](x T) bool {
	switch v := any(x).(type) {
	case float32:
		return math.IsNaN(float64(v))
	case float64:
		return math.IsNaN(v)
	default:
		return false
	}
}

func less[T cmn.Element](a, b T) bool { return a < b }

// shapeU32 converts an []int shape to the []uint32 the wire Response uses.
func shapeU32(shape []int) []uint32 {
	out := make([]uint32, len(shape))
	for i, d := range shape {
		out[i] = uint32(d)
	}
	return out
}
