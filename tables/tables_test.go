package tables

import (
	"errors"
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walkOf(values ...int64) Walk {
	return func(emit func(int64)) {
		for _, v := range values {
			emit(v)
		}
	}
}

func TestWidthAdequacyAndMinimality(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.tables")
	defer teardown()
	//
	columns := [][]int64{
		{0, 1, 2},
		{0, 255},
		{0, 256},
		{-1, 5},
		{-129, 0},
		{0, 70000},
		{0, math.MaxUint32},
		{0, math.MaxUint32 + 1},
		{math.MinInt64, math.MaxInt64},
		{},
	}
	expected := []string{"uint8", "uint8", "uint16", "int8", "int16", "uint32", "uint32", "uint64", "int64", "uint8"}
	for i, col := range columns {
		an := Analyze("col", walkOf(col...))
		if an.Type.Name != expected[i] {
			t.Errorf("Expected column #%d to be typed %s, is %s", i, expected[i], an.Type)
		}
		for _, v := range col {
			if v < an.Min || v > an.Max {
				t.Errorf("Value %d of column #%d outside recorded [%d,%d]", v, i, an.Min, an.Max)
			}
		}
		if !an.Type.Covers(an.Min, an.Max) {
			t.Errorf("Type %s of column #%d does not cover [%d,%d]", an.Type, i, an.Min, an.Max)
		}
		if smaller, ok := narrower(an.Type); ok && smaller.Covers(an.Min, an.Max) {
			t.Errorf("Type %s of column #%d is not minimal, %s would do", an.Type, i, smaller)
		}
	}
}

func TestSignedAndFixedOptions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.tables")
	defer teardown()
	//
	an := Analyze("spaces", walkOf(0, 1, 2), Signed())
	assert.Equal(t, "int8", an.Type.Name)
	an = Analyze("keys", walkOf(0, 1, 2), Fixed(Int32))
	assert.Equal(t, "int32", an.Type.Name)
}

func TestAnalyzeGenerateRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.tables")
	defer teardown()
	//
	for _, col := range [][]int64{
		{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9},
		{-7, 0, 7},
		{0},
		{math.MaxUint32 + 5, 1},
	} {
		walk := walkOf(col...)
		an := Analyze("col", walk)
		arr, err := Generate(an, walk)
		require.NoError(t, err)
		typ, values, err := Decode(arr.Literal())
		require.NoError(t, err)
		assert.Equal(t, an.Type.Name, typ.Name)
		assert.Equal(t, an.Values(), values)
	}
}

func TestUnsigned64Literal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.tables")
	defer teardown()
	//
	walk := walkOf(-1, 0)
	arr, err := Build("keys", walk, Fixed(Uint64))
	require.NoError(t, err)
	assert.Contains(t, arr.Literal(), "18446744073709551615")
	_, values, err := Decode(arr.Literal())
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, 0}, values)
}

func TestDesyncIsDetected(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.tables")
	defer teardown()
	//
	n := 5
	walk := func(emit func(int64)) {
		for i := 0; i < n; i++ {
			emit(int64(i))
		}
	}
	an := Analyze("offbyone", walk)
	n = 6 // loop bound changed between phases
	_, err := Generate(an, walk)
	if !errors.Is(err, ErrDesync) {
		t.Errorf("Expected desync for longer walk, got %v", err)
	}
	n = 4
	_, err = Generate(an, walk)
	if !errors.Is(err, ErrDesync) {
		t.Errorf("Expected desync for shorter walk, got %v", err)
	}
	_, err = Generate(an, walkOf(0, 1, 2, 3, 5))
	if !errors.Is(err, ErrDesync) {
		t.Errorf("Expected desync for changed value, got %v", err)
	}
}

func TestDecodeRejectsMissingSentinel(t *testing.T) {
	_, _, err := Decode("[...]uint8{\n\t1, 2,\n}")
	assert.True(t, errors.Is(err, ErrLiteral))
	_, _, err = Decode("[]uint8{0}")
	assert.True(t, errors.Is(err, ErrLiteral))
}
