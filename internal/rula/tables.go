package rula

import (
	"fmt"
	"math"
)

// LookupTable is an immutable integer table indexed from 1. Lookups never
// fail: indices outside the table saturate at the nearest edge, matching
// the open-ended last row/column of the published tables ("8+", "7+").
type LookupTable struct {
	Name  string
	Rows  int
	Cols  int
	cells []int
}

// NewLookupTable copies data into a table. Rows must be non-empty, equal
// length and hold positive scores.
func NewLookupTable(name string, data [][]int) (*LookupTable, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, &ConfigError{Resource: "table " + name, Err: fmt.Errorf("empty table")}
	}
	t := &LookupTable{Name: name, Rows: len(data), Cols: len(data[0])}
	t.cells = make([]int, 0, t.Rows*t.Cols)
	for r, row := range data {
		if len(row) != t.Cols {
			return nil, &ConfigError{Resource: "table " + name, Err: fmt.Errorf("row %d has %d columns, want %d", r+1, len(row), t.Cols)}
		}
		for c, v := range row {
			if v < 1 {
				return nil, &ConfigError{Resource: "table " + name, Err: fmt.Errorf("cell (%d,%d) = %d, scores start at 1", r+1, c+1, v)}
			}
		}
		t.cells = append(t.cells, row...)
	}
	return t, nil
}

// At returns the cell at (row, col) after clamping both to the table.
func (t *LookupTable) At(row, col int) int {
	if row < 1 {
		row = 1
	} else if row > t.Rows {
		row = t.Rows
	}
	if col < 1 {
		col = 1
	} else if col > t.Cols {
		col = t.Cols
	}
	return t.cells[(row-1)*t.Cols+(col-1)]
}

// Lookup is At for score series values: indices are rounded, and a NaN
// index yields NaN.
func (t *LookupTable) Lookup(row, col float64) float64 {
	if math.IsNaN(row) || math.IsNaN(col) {
		return math.NaN()
	}
	return float64(t.At(int(math.Round(row)), int(math.Round(col))))
}

// checkShape reports a configuration error unless the table is rows x cols.
func (t *LookupTable) checkShape(rows, cols int) error {
	if t.Rows != rows || t.Cols != cols {
		return &ConfigError{Resource: "table " + t.Name, Err: fmt.Errorf("shape %dx%d, want %dx%d", t.Rows, t.Cols, rows, cols)}
	}
	return nil
}

// Table A rows are (upper arm, lower arm) pairs, columns (wrist, twist).
var tableAData = [][]int{
	// wrist 1   wrist 2   wrist 3   wrist 4
	{1, 2, 2, 2, 2, 3, 3, 3}, // upper 1, lower 1
	{2, 2, 2, 2, 3, 3, 3, 3}, // upper 1, lower 2
	{2, 3, 3, 3, 3, 3, 4, 4}, // upper 1, lower 3
	{2, 3, 3, 3, 3, 4, 4, 4},
	{3, 3, 3, 3, 3, 4, 4, 4},
	{3, 4, 4, 4, 4, 4, 5, 5},
	{3, 3, 4, 4, 4, 4, 5, 5},
	{3, 4, 4, 4, 4, 4, 5, 5},
	{4, 4, 4, 4, 4, 5, 5, 5},
	{4, 4, 4, 4, 4, 5, 5, 5},
	{4, 4, 4, 4, 4, 5, 5, 5},
	{4, 4, 4, 5, 5, 5, 6, 6},
	{5, 5, 5, 5, 5, 6, 6, 7},
	{5, 6, 6, 6, 6, 7, 7, 7},
	{6, 6, 6, 7, 7, 7, 7, 8},
	{7, 7, 7, 7, 7, 8, 8, 9},
	{8, 8, 8, 8, 8, 9, 9, 9},
	{9, 9, 9, 9, 9, 9, 9, 9}, // upper 6, lower 3
}

// Table B rows are neck scores, columns (trunk, legs).
var tableBData = [][]int{
	// trunk 1  2     3     4     5     6
	{1, 3, 2, 3, 3, 4, 5, 5, 6, 6, 7, 7},
	{2, 3, 2, 3, 4, 5, 5, 5, 6, 7, 7, 7},
	{3, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 7},
	{5, 5, 5, 6, 6, 7, 7, 7, 7, 7, 8, 8},
	{7, 7, 7, 7, 7, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 9, 9, 9, 9, 9},
}

// Table C rows are wrist/arm scores (8+), columns neck/trunk/leg scores (7+).
var tableCData = [][]int{
	{1, 2, 3, 3, 4, 5, 5},
	{2, 2, 3, 4, 4, 5, 5},
	{3, 3, 3, 4, 4, 5, 6},
	{3, 3, 3, 4, 5, 6, 6},
	{4, 4, 4, 5, 6, 7, 7},
	{4, 4, 5, 6, 6, 7, 7},
	{5, 5, 6, 6, 7, 7, 7},
	{5, 5, 6, 7, 7, 7, 7},
}

var (
	tableA = mustTable("A", tableAData, 18, 8)
	tableB = mustTable("B", tableBData, 6, 12)
	tableC = mustTable("C", tableCData, 8, 7)
)

func mustTable(name string, data [][]int, rows, cols int) *LookupTable {
	t, err := NewLookupTable(name, data)
	if err == nil {
		err = t.checkShape(rows, cols)
	}
	if err != nil {
		panic(err)
	}
	return t
}

// TableA returns the arm/wrist table. Tables are shared and must not be
// modified.
func TableA() *LookupTable { return tableA }

// TableB returns the neck/trunk/legs table.
func TableB() *LookupTable { return tableB }

// TableC returns the final grand-score table.
func TableC() *LookupTable { return tableC }

// LookupA combines upper arm (1-6), lower arm (1-3), wrist (1-4) and
// wrist twist (1-2). Each component is clamped before the composite
// index is formed so one saturated input cannot spill into another.
func LookupA(upper, lower, wrist, twist float64) float64 {
	if math.IsNaN(upper) || math.IsNaN(lower) || math.IsNaN(wrist) || math.IsNaN(twist) {
		return math.NaN()
	}
	row := (clampInt(upper, 1, 6)-1)*3 + clampInt(lower, 1, 3)
	col := (clampInt(wrist, 1, 4)-1)*2 + clampInt(twist, 1, 2)
	return float64(tableA.At(row, col))
}

// LookupB combines neck (1-6), trunk (1-6) and legs (1-2).
func LookupB(neck, trunk, legs float64) float64 {
	if math.IsNaN(neck) || math.IsNaN(trunk) || math.IsNaN(legs) {
		return math.NaN()
	}
	col := (clampInt(trunk, 1, 6)-1)*2 + clampInt(legs, 1, 2)
	return float64(tableB.At(clampInt(neck, 1, 6), col))
}

// LookupC gives the grand score from the wrist/arm score and the
// neck/trunk/leg score.
func LookupC(arm, body float64) float64 {
	return tableC.Lookup(arm, body)
}
