// Package array reinterprets downloaded bytes as a typed, shaped view and
// applies selection slicing and byte-order normalization. Grounded on
// original_source/src/array.rs; this is one of the two components this
// module implements directly against the standard library rather than a
// pack dependency (see DESIGN.md) because it is the bespoke core algorithm
// the system exists to provide.
package array

import (
	"unsafe"

	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// View is a zero-copy reinterpretation of a byte buffer as a shaped array
// of T. The backing bytes must outlive the view.
type View[T cmn.Element] struct {
	elems   []T
	shape   []int
	order   cmn.Order
	strides []int
}

// Shape returns the array's dimension sizes in declared (not necessarily
// memory) order.
func (v *View[T]) Shape() []int { return v.shape }

// Len returns the total element count.
func (v *View[T]) Len() int { return len(v.elems) }

// Raw returns the underlying contiguous element slice, in actual memory
// layout order (row-major over whatever Order the array was built with).
func (v *View[T]) Raw() []T { return v.elems }

// BuildArrayFromBytes reinterprets data as a View[T] with the given shape
// and storage order, without copying. Fails with cmn.KindFromBytes if the
// byte length isn't a whole number of elements, or the buffer isn't aligned
// to at least sizeof(T) bytes (the chunk downloader and cache both
// guarantee 8-byte alignment, which covers every supported T).
func BuildArrayFromBytes[T cmn.Element](data []byte, shape []uint32, order cmn.Order) (*View[T], error) {
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if elemSize == 0 {
		return nil, cmn.NewError(cmn.KindFromBytes, "failed to convert from bytes: zero-sized element type")
	}
	if len(data)%elemSize != 0 {
		return nil, cmn.NewError(cmn.KindFromBytes, "failed to convert from bytes to element type: length %d not a multiple of %d", len(data), elemSize)
	}
	if len(data) > 0 {
		addr := uintptr(unsafe.Pointer(&data[0]))
		if addr%uintptr(elemSize) != 0 {
			return nil, cmn.NewError(cmn.KindFromBytes, "failed to convert from bytes to element type: buffer not aligned to %d bytes", elemSize)
		}
	}

	n := len(data) / elemSize
	var elems []T
	if n > 0 {
		elems = unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
	}

	dims := make([]int, len(shape))
	product := 1
	for i, d := range shape {
		dims[i] = int(d)
		product *= int(d)
	}
	if len(shape) == 0 {
		dims = []int{n}
		product = n
	}
	if product != n {
		return nil, cmn.NewError(cmn.KindShapeInvalid, "shape %v does not match element count %d", shape, n)
	}
	if order == "" {
		order = cmn.OrderC
	}
	view := &View[T]{elems: elems, shape: dims, order: order}
	view.strides = computeStrides(dims, order)
	return view, nil
}

// computeStrides returns the per-axis stride (in elements) for walking
// memory in declared-shape index order, accounting for storage order.
func computeStrides(shape []int, order cmn.Order) []int {
	rank := len(shape)
	strides := make([]int, rank)
	if order == cmn.OrderF {
		acc := 1
		for d := 0; d < rank; d++ {
			strides[d] = acc
			acc *= shape[d]
		}
	} else {
		acc := 1
		for d := rank - 1; d >= 0; d-- {
			strides[d] = acc
			acc *= shape[d]
		}
	}
	return strides
}

// At returns the element at the given declared-shape multi-index.
func (v *View[T]) At(idx []int) T {
	offset := 0
	for d, i := range idx {
		offset += i * v.strides[d]
	}
	return v.elems[offset]
}

// StorageOrder reports the view's storage order.
func (v *View[T]) StorageOrder() cmn.Order { return v.order }
