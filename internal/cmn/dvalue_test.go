package cmn

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDValueRejectsNaNAndInf(t *testing.T) {
	_, err := NewDValue(math.NaN())
	require.Error(t, err)
	_, err = NewDValue(math.Inf(1))
	require.Error(t, err)
	_, err = NewDValue(math.Inf(-1))
	require.Error(t, err)
}

func TestNewDValueAcceptsFinite(t *testing.T) {
	v, err := NewDValue(-12.5)
	require.NoError(t, err)
	assert.Equal(t, -12.5, v.Float64())
}

func TestNarrowDValueInt32RejectsNonInteger(t *testing.T) {
	v, _ := NewDValue(1.5)
	_, err := NarrowDValue[int32](v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleMissing))
}

func TestNarrowDValueInt32RejectsOutOfRange(t *testing.T) {
	v, _ := NewDValue(math.MaxInt32 + 1)
	_, err := NarrowDValue[int32](v)
	require.Error(t, err)
}

func TestNarrowDValueInt32Success(t *testing.T) {
	v, _ := NewDValue(-42)
	got, err := NarrowDValue[int32](v)
	require.NoError(t, err)
	assert.Equal(t, int32(-42), got)
}

func TestNarrowDValueUint32RejectsNegative(t *testing.T) {
	v, _ := NewDValue(-1)
	_, err := NarrowDValue[uint32](v)
	require.Error(t, err)
}

func TestNarrowDValueUint64Success(t *testing.T) {
	v, _ := NewDValue(100)
	got, err := NarrowDValue[uint64](v)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got)
}

func TestNarrowDValueFloat32RejectsOverflow(t *testing.T) {
	v, _ := NewDValue(math.MaxFloat64)
	_, err := NarrowDValue[float32](v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleMissing))
}

func TestNarrowDValueFloat64Passthrough(t *testing.T) {
	v, _ := NewDValue(3.14159)
	got, err := NarrowDValue[float64](v)
	require.NoError(t, err)
	assert.Equal(t, 3.14159, got)
}

func TestDValueUnmarshalJSON(t *testing.T) {
	var v DValue
	require.NoError(t, v.UnmarshalJSON([]byte("12.5")))
	assert.Equal(t, 12.5, v.Float64())
}

func TestDValueUnmarshalJSONRejectsInvalidLiteral(t *testing.T) {
	var v DValue
	require.Error(t, v.UnmarshalJSON([]byte("not-a-number")))
}
