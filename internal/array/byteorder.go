package array

import (
	"unsafe"

	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// FlatOffset maps a declared-shape multi-index to an offset into the
// underlying contiguous element slice.
func (v *View[T]) FlatOffset(idx []int) int {
	offset := 0
	for d, i := range idx {
		offset += i * v.strides[d]
	}
	return offset
}

// ReverseByteOrder byte-reverses every selected element of v in place. It is
// a no-op when the request's declared byte order matches the host's native
// order. Only the elements named by sel are touched, matching the
// reference's "respecting any selection mask" rule — reversing the whole
// buffer would corrupt bytes belonging to unselected (and therefore
// never-decoded) elements when shapes overlap padding regions.
func ReverseByteOrder[T cmn.Element](v *View[T], sel []AxisSlice, declared cmn.ByteOrder) {
	if declared == cmn.NativeByteOrder() {
		return
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size <= 1 {
		return
	}
	shape := SelectedShape(sel)
	total := SelectedElementCount(sel)
	for n := 0; n < total; n++ {
		idx := Unravel(n, shape)
		full := MapSelected(sel, idx)
		offset := v.FlatOffset(full)
		reverseElementBytes(&v.elems[offset], size)
	}
}

func reverseElementBytes[T any](elem *T, size int) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(elem)), size)
	for i, j := 0, size-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
