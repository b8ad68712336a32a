package rula

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableShapes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 18, TableA().Rows)
	assert.Equal(t, 8, TableA().Cols)
	assert.Equal(t, 6, TableB().Rows)
	assert.Equal(t, 12, TableB().Cols)
	assert.Equal(t, 8, TableC().Rows)
	assert.Equal(t, 7, TableC().Cols)
}

func TestLookupTable_AtClamps(t *testing.T) {
	t.Parallel()

	c := TableC()
	assert.Equal(t, c.At(c.Rows, 1), c.At(999, 1))
	assert.Equal(t, c.At(1, c.Cols), c.At(1, 999))
	assert.Equal(t, c.At(1, 1), c.At(-3, 0))
	assert.Equal(t, 7, c.At(20, 20))
}

func TestLookupTable_LookupNaN(t *testing.T) {
	t.Parallel()

	assert.True(t, math.IsNaN(TableC().Lookup(math.NaN(), 1)))
	assert.True(t, math.IsNaN(TableC().Lookup(1, math.NaN())))
	assert.Equal(t, 3.0, TableC().Lookup(2.6, 2.4))
}

func TestLookupA(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name                      string
		upper, lower, wrist, twist float64
		want                      float64
	}{
		{"all neutral", 1, 1, 1, 1, 1},
		{"worked example", 2, 2, 1, 1, 3},
		{"upper 3 lower 1 wrist 3 twist 2", 3, 1, 3, 2, 4},
		{"worst cell", 6, 3, 4, 2, 9},
		{"upper clamps", 9, 3, 4, 2, 9},
		{"lower clamps to its own range", 1, 5, 1, 1, 2},
		{"twist clamps to its own range", 1, 1, 1, 4, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LookupA(tc.upper, tc.lower, tc.wrist, tc.twist))
		})
	}
	assert.True(t, math.IsNaN(LookupA(1, math.NaN(), 1, 1)))
}

func TestLookupB(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, LookupB(1, 1, 1))
	assert.Equal(t, 3.0, LookupB(1, 1, 2))
	assert.Equal(t, 2.0, LookupB(2, 1, 1))
	assert.Equal(t, 9.0, LookupB(6, 6, 2))
	assert.Equal(t, 9.0, LookupB(8, 8, 3))
	assert.True(t, math.IsNaN(LookupB(1, 1, math.NaN())))
}

func TestLookupC(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, LookupC(1, 1))
	assert.Equal(t, 3.0, LookupC(3, 2))
	assert.Equal(t, 7.0, LookupC(8, 7))
	assert.Equal(t, 7.0, LookupC(12, 11))
}

func TestNewLookupTable_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		data [][]int
	}{
		{"empty", nil},
		{"empty row", [][]int{{}}},
		{"ragged", [][]int{{1, 2}, {1}}},
		{"zero cell", [][]int{{1, 0}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLookupTable("X", tc.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "table X", cfgErr.Resource)
		})
	}
}

func TestCheckShape(t *testing.T) {
	t.Parallel()

	tbl, err := NewLookupTable("small", [][]int{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.NoError(t, tbl.checkShape(2, 2))
	assert.ErrorIs(t, tbl.checkShape(3, 2), ErrConfiguration)
}
