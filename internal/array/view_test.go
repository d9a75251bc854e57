package array

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackhpc/reductionist-go/internal/cmn"
)

func le32(vals ...uint32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func TestBuildArrayFromBytesRoundTrip(t *testing.T) {
	data := le32(1, 2, 3, 4, 5, 6)
	view, err := BuildArrayFromBytes[uint32](data, []uint32{2, 3}, cmn.OrderC)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, view.Shape())
	assert.Equal(t, uint32(1), view.At([]int{0, 0}))
	assert.Equal(t, uint32(4), view.At([]int{1, 0}))
	assert.Equal(t, uint32(6), view.At([]int{1, 2}))
}

func TestBuildArrayFromBytesShapeMismatch(t *testing.T) {
	data := le32(1, 2, 3)
	_, err := BuildArrayFromBytes[uint32](data, []uint32{2, 2}, cmn.OrderC)
	require.Error(t, err)
	assert.Equal(t, cmn.KindShapeInvalid.Status(), cmn.StatusOf(err))
}

func TestBuildArrayFromBytesDefaultShape(t *testing.T) {
	data := le32(1, 2, 3, 4)
	view, err := BuildArrayFromBytes[uint32](data, nil, cmn.OrderC)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, view.Shape())
}

func TestBuildSliceInfoDefaultsToFull(t *testing.T) {
	sel, err := BuildSliceInfo(nil, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []AxisSlice{{0, 2, 1}, {0, 3, 1}}, sel)
	assert.Equal(t, []int{2, 3}, SelectedShape(sel))
}

func TestBuildSliceInfoRejectsRankMismatch(t *testing.T) {
	_, err := BuildSliceInfo([]cmn.Slice{{Start: 0, End: 1, Stride: 1}}, []int{2, 3})
	require.Error(t, err)
}

func TestFOrderIndexing(t *testing.T) {
	// F-order: column-major. Shape [2,3] stored column by column:
	// col0 = [1,2], col1 = [3,4], col2 = [5,6]
	data := le32(1, 2, 3, 4, 5, 6)
	view, err := BuildArrayFromBytes[uint32](data, []uint32{2, 3}, cmn.OrderF)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), view.At([]int{0, 0}))
	assert.Equal(t, uint32(2), view.At([]int{1, 0}))
	assert.Equal(t, uint32(3), view.At([]int{0, 1}))
}

func TestReverseByteOrderNoopWhenNative(t *testing.T) {
	data := le32(1, 2)
	view, err := BuildArrayFromBytes[uint32](data, []uint32{2}, cmn.OrderC)
	require.NoError(t, err)
	sel, err := BuildSliceInfo(nil, view.Shape())
	require.NoError(t, err)
	ReverseByteOrder(view, sel, cmn.NativeByteOrder())
	assert.Equal(t, uint32(1), view.At([]int{0}))
}

func TestReverseByteOrderFlipsNonNative(t *testing.T) {
	// Big-endian bytes for 1, 2 as uint32.
	data := []byte{0, 0, 0, 1, 0, 0, 0, 2}
	view, err := BuildArrayFromBytes[uint32](data, []uint32{2}, cmn.OrderC)
	require.NoError(t, err)
	sel, err := BuildSliceInfo(nil, view.Shape())
	require.NoError(t, err)
	opposite := cmn.BigEndian
	if cmn.NativeByteOrder() == cmn.BigEndian {
		opposite = cmn.LittleEndian
	}
	ReverseByteOrder(view, sel, opposite)
	assert.Equal(t, uint32(1), view.At([]int{0}))
	assert.Equal(t, uint32(2), view.At([]int{1}))
}
