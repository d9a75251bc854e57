package cmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dval(t *testing.T, f float64) DValue {
	t.Helper()
	v, err := NewDValue(f)
	require.NoError(t, err)
	return v
}

func TestWireMissingValidateRequiresExactlyOneVariant(t *testing.T) {
	w := &WireMissing{}
	require.Error(t, w.Validate())

	v := dval(t, 1)
	w = &WireMissing{MissingValue: &v, ValidMin: &v}
	require.Error(t, w.Validate())

	w = &WireMissing{MissingValue: &v}
	require.NoError(t, w.Validate())
}

func TestWireMissingValidateRejectsBackwardsRange(t *testing.T) {
	lo, hi := dval(t, 10), dval(t, 5)
	w := &WireMissing{ValidRange: &[2]DValue{lo, hi}}
	require.Error(t, w.Validate())
}

func TestWireMissingValidateAcceptsOrderedRange(t *testing.T) {
	lo, hi := dval(t, -5), dval(t, 5)
	w := &WireMissing{ValidRange: &[2]DValue{lo, hi}}
	require.NoError(t, w.Validate())
}

func TestNarrowMissingValue(t *testing.T) {
	v := dval(t, 42)
	m, err := NarrowMissing[int32](&WireMissing{MissingValue: &v})
	require.NoError(t, err)
	assert.Equal(t, MissingValue, m.Kind)
	assert.True(t, m.IsMissing(42))
	assert.False(t, m.IsMissing(43))
}

func TestNarrowMissingValues(t *testing.T) {
	w := &WireMissing{MissingValues: []DValue{dval(t, 1), dval(t, 2)}}
	m, err := NarrowMissing[int32](w)
	require.NoError(t, err)
	assert.True(t, m.IsMissing(1))
	assert.True(t, m.IsMissing(2))
	assert.False(t, m.IsMissing(3))
}

func TestNarrowMissingValidMin(t *testing.T) {
	v := dval(t, 0)
	m, err := NarrowMissing[int32](&WireMissing{ValidMin: &v})
	require.NoError(t, err)
	assert.True(t, m.IsMissing(-1))
	assert.False(t, m.IsMissing(0))
}

func TestNarrowMissingValidMax(t *testing.T) {
	v := dval(t, 100)
	m, err := NarrowMissing[int32](&WireMissing{ValidMax: &v})
	require.NoError(t, err)
	assert.True(t, m.IsMissing(101))
	assert.False(t, m.IsMissing(100))
}

func TestNarrowMissingValidRange(t *testing.T) {
	lo, hi := dval(t, 0), dval(t, 10)
	m, err := NarrowMissing[int32](&WireMissing{ValidRange: &[2]DValue{lo, hi}})
	require.NoError(t, err)
	assert.True(t, m.IsMissing(-1))
	assert.True(t, m.IsMissing(11))
	assert.False(t, m.IsMissing(5))
}

func TestNarrowMissingPropagatesNarrowingFailure(t *testing.T) {
	v := dval(t, 1.5)
	_, err := NarrowMissing[int32](&WireMissing{MissingValue: &v})
	require.Error(t, err)
}

func TestNarrowMissingEmptyDescriptorIsError(t *testing.T) {
	_, err := NarrowMissing[int32](&WireMissing{})
	require.Error(t, err)
}
