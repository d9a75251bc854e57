package reduce

import (
	"math"

	"github.com/stackhpc/reductionist-go/internal/array"
	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// --- Count -------------------------------------------------------------

type Count struct{}

func (Count) Execute(req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	switch req.DType {
	case cmn.Int32:
		return countT[int32](req, data)
	case cmn.Int64:
		return countT[int64](req, data)
	case cmn.Uint32:
		return countT[uint32](req, data)
	case cmn.Uint64:
		return countT[uint64](req, data)
	case cmn.Float32:
		return countT[float32](req, data)
	case cmn.Float64:
		return countT[float64](req, data)
	default:
		return nil, cmn.NewError(cmn.KindValidationError, "unsupported dtype %q", req.DType)
	}
}

func countT[T cmn.Element](req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	p, err := prepare[T](req, data)
	if err != nil {
		return nil, err
	}
	counts, shape, err := foldAxes[T, int64](p.view, p.sel, *req.Axis, p.missing,
		func() int64 { return 0 },
		func(acc int64, _ T, isMissing bool) (int64, error) {
			if isMissing {
				return acc, nil
			}
			return acc + 1, nil
		},
		func(_ T, isMissing bool) int64 {
			if isMissing {
				return 0
			}
			return 1
		})
	if err != nil {
		return nil, err
	}
	return &cmn.Response{
		Bytes: packInt64(counts),
		DType: cmn.Int64,
		Shape: shapeU32(shape),
		Count: counts,
	}, nil
}

// --- Min / Max -----------------------------------------------------------

type minMaxCell[T cmn.Element] struct {
	val   T
	count int64
	has   bool
}

func foldMinMax[T cmn.Element](p *prepared[T], req *cmn.RequestData, isMax bool) ([]minMaxCell[T], []int, error) {
	if array.SelectedElementCount(p.sel) == 0 {
		return nil, nil, cmn.ErrEmptyArray
	}
	return foldAxes[T, minMaxCell[T]](p.view, p.sel, *req.Axis, p.missing,
		func() minMaxCell[T] { return minMaxCell[T]{} },
		func(acc minMaxCell[T], x T, isMissing bool) (minMaxCell[T], error) {
			if isMissing {
				return acc, nil
			}
			if isNaN(x) {
				return acc, cmn.ErrMinMax
			}
			acc.count++
			if !acc.has {
				acc.val = x
				acc.has = true
				return acc, nil
			}
			if isMax {
				if less(acc.val, x) {
					acc.val = x
				}
			} else {
				if less(x, acc.val) {
					acc.val = x
				}
			}
			return acc, nil
		},
		func(x T, isMissing bool) minMaxCell[T] {
			count := int64(1)
			if isMissing {
				count = 0
			}
			return minMaxCell[T]{val: x, count: count, has: true}
		})
}

type Max struct{}

func (Max) Execute(req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	switch req.DType {
	case cmn.Int32:
		return minMaxResponse[int32](req, data, true)
	case cmn.Int64:
		return minMaxResponse[int64](req, data, true)
	case cmn.Uint32:
		return minMaxResponse[uint32](req, data, true)
	case cmn.Uint64:
		return minMaxResponse[uint64](req, data, true)
	case cmn.Float32:
		return minMaxResponse[float32](req, data, true)
	case cmn.Float64:
		return minMaxResponse[float64](req, data, true)
	default:
		return nil, cmn.NewError(cmn.KindValidationError, "unsupported dtype %q", req.DType)
	}
}

type Min struct{}

func (Min) Execute(req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	switch req.DType {
	case cmn.Int32:
		return minMaxResponse[int32](req, data, false)
	case cmn.Int64:
		return minMaxResponse[int64](req, data, false)
	case cmn.Uint32:
		return minMaxResponse[uint32](req, data, false)
	case cmn.Uint64:
		return minMaxResponse[uint64](req, data, false)
	case cmn.Float32:
		return minMaxResponse[float32](req, data, false)
	case cmn.Float64:
		return minMaxResponse[float64](req, data, false)
	default:
		return nil, cmn.NewError(cmn.KindValidationError, "unsupported dtype %q", req.DType)
	}
}

func minMaxResponse[T cmn.Element](req *cmn.RequestData, data []byte, isMax bool) (*cmn.Response, error) {
	p, err := prepare[T](req, data)
	if err != nil {
		return nil, err
	}
	cells, shape, err := foldMinMax(p, req, isMax)
	if err != nil {
		return nil, err
	}
	values := make([]T, len(cells))
	counts := make([]int64, len(cells))
	for i, c := range cells {
		if !c.has {
			return nil, cmn.ErrMinMax
		}
		values[i] = c.val
		counts[i] = c.count
	}
	return &cmn.Response{
		Bytes: packElements(values, cmn.NativeByteOrder()),
		DType: req.DType,
		Shape: shapeU32(shape),
		Count: counts,
	}, nil
}

// --- Sum / Mean ------------------------------------------------------------

type sumCell[T cmn.Element] struct {
	val   T
	count int64
}

func foldSum[T cmn.Element](p *prepared[T], req *cmn.RequestData) ([]sumCell[T], []int, error) {
	return foldAxes[T, sumCell[T]](p.view, p.sel, *req.Axis, p.missing,
		func() sumCell[T] { return sumCell[T]{} },
		func(acc sumCell[T], x T, isMissing bool) (sumCell[T], error) {
			if isMissing {
				return acc, nil
			}
			acc.val += x // wraps on integer overflow; see DESIGN.md resolved open question
			acc.count++
			return acc, nil
		},
		func(x T, isMissing bool) sumCell[T] {
			count := int64(1)
			if isMissing {
				count = 0
			}
			return sumCell[T]{val: x, count: count}
		})
}

type Sum struct{}

func (Sum) Execute(req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	switch req.DType {
	case cmn.Int32:
		return sumResponse[int32](req, data)
	case cmn.Int64:
		return sumResponse[int64](req, data)
	case cmn.Uint32:
		return sumResponse[uint32](req, data)
	case cmn.Uint64:
		return sumResponse[uint64](req, data)
	case cmn.Float32:
		return sumResponse[float32](req, data)
	case cmn.Float64:
		return sumResponse[float64](req, data)
	default:
		return nil, cmn.NewError(cmn.KindValidationError, "unsupported dtype %q", req.DType)
	}
}

func sumResponse[T cmn.Element](req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	p, err := prepare[T](req, data)
	if err != nil {
		return nil, err
	}
	cells, shape, err := foldSum(p, req)
	if err != nil {
		return nil, err
	}
	values := make([]T, len(cells))
	counts := make([]int64, len(cells))
	for i, c := range cells {
		values[i] = c.val
		counts[i] = c.count
	}
	return &cmn.Response{
		Bytes: packElements(values, cmn.NativeByteOrder()),
		DType: req.DType,
		Shape: shapeU32(shape),
		Count: counts,
	}, nil
}

type Mean struct{}

func (Mean) Execute(req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	switch req.DType {
	case cmn.Int32:
		return meanResponse[int32](req, data)
	case cmn.Int64:
		return meanResponse[int64](req, data)
	case cmn.Uint32:
		return meanResponse[uint32](req, data)
	case cmn.Uint64:
		return meanResponse[uint64](req, data)
	case cmn.Float32:
		return meanResponse[float32](req, data)
	case cmn.Float64:
		return meanResponse[float64](req, data)
	default:
		return nil, cmn.NewError(cmn.KindValidationError, "unsupported dtype %q", req.DType)
	}
}

// meanResponse reuses the Sum/Count machinery and divides at the end,
// matching the reference's "Mean = Sum/Count computed with the same axis
// rules". The result is always emitted as Float64 to avoid lossy integer
// division, a clarification of the wire format noted in SPEC_FULL.md §4.7.
func meanResponse[T cmn.Element](req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	p, err := prepare[T](req, data)
	if err != nil {
		return nil, err
	}
	cells, shape, err := foldSum(p, req)
	if err != nil {
		return nil, err
	}
	means := make([]float64, len(cells))
	counts := make([]int64, len(cells))
	for i, c := range cells {
		counts[i] = c.count
		if c.count == 0 {
			means[i] = math.NaN()
			continue
		}
		means[i] = toFloat64(c.val) / float64(c.count)
	}
	return &cmn.Response{
		Bytes: packFloat64(means, cmn.NativeByteOrder()),
		DType: cmn.Float64,
		Shape: shapeU32(shape),
		Count: counts,
	}, nil
}

// --- Select ----------------------------------------------------------------

type Select struct{}

func (Select) Execute(req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	switch req.DType {
	case cmn.Int32:
		return selectT[int32](req, data)
	case cmn.Int64:
		return selectT[int64](req, data)
	case cmn.Uint32:
		return selectT[uint32](req, data)
	case cmn.Uint64:
		return selectT[uint64](req, data)
	case cmn.Float32:
		return selectT[float32](req, data)
	case cmn.Float64:
		return selectT[float64](req, data)
	default:
		return nil, cmn.NewError(cmn.KindValidationError, "unsupported dtype %q", req.DType)
	}
}

// selectT returns the selected elements in C-order regardless of the
// input's storage order, including missing values unchanged in the bytes;
// count is the total number of non-missing elements.
func selectT[T cmn.Element](req *cmn.RequestData, data []byte) (*cmn.Response, error) {
	p, err := prepare[T](req, data)
	if err != nil {
		return nil, err
	}
	shape := array.SelectedShape(p.sel)
	total := array.SelectedElementCount(p.sel)
	values := make([]T, total)
	var nonMissing int64
	for n := 0; n < total; n++ {
		idx := array.Unravel(n, shape)
		full := array.MapSelected(p.sel, idx)
		v := p.view.At(full)
		values[n] = v
		if p.missing == nil || !p.missing.IsMissing(v) {
			nonMissing++
		}
	}
	return &cmn.Response{
		Bytes: packElements(values, cmn.NativeByteOrder()),
		DType: req.DType,
		Shape: shapeU32(shape),
		Count: []int64{nonMissing},
	}, nil
}

// --- byte packing helpers ---------------------------------------------------

func packInt64(vals []int64) []byte {
	bo := cmn.NativeByteOrder().Binary()
	out := make([]byte, 8*len(vals))
	for i, v := range vals {
		bo.PutUint64(out[i*8:], uint64(v))
	}
	return out
}

func packFloat64(vals []float64, order cmn.ByteOrder) []byte {
	bo := order.Binary()
	out := make([]byte, 8*len(vals))
	for i, v := range vals {
		bo.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func packElements[T cmn.Element](vals []T, order cmn.ByteOrder) []byte {
	var zero T
	bo := order.Binary()
	switch any(zero).(type) {
	case int32, uint32, float32:
		out := make([]byte, 4*len(vals))
		for i, v := range vals {
			bo.PutUint32(out[i*4:], toUint32Bits(v))
		}
		return out
	default:
		out := make([]byte, 8*len(vals))
		for i, v := range vals {
			bo.PutUint64(out[i*8:], toUint64Bits(v))
		}
		return out
	}
}

func toUint32Bits[T cmn.Element](v T) uint32 {
	switch x := any(v).(type) {
	case int32:
		return uint32(x)
	case uint32:
		return x
	case float32:
		return math.Float32bits(x)
	default:
		return 0
	}
}

func toUint64Bits[T cmn.Element](v T) uint64 {
	switch x := any(v).(type) {
	case int64:
		return uint64(x)
	case uint64:
		return x
	case float64:
		return math.Float64bits(x)
	default:
		return 0
	}
}

func toFloat64[T cmn.Element](v T) float64 {
	switch x := any(v).(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}
