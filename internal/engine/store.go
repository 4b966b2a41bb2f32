package engine

import "math"

// ColumnStore holds the dataset in Struct-of-Arrays format
type ColumnStore struct {
	// Indicator columns in header order (categorical columns excluded)
	Columns []string

	// Cleaned numbers per column, NaN where the cell is missing or not numeric
	Numbers map[string][]float64
	// Raw cell text per column, "" where the cell is empty
	Text map[string][]string

	// Dictionary Encoded IDs (0..N), first-appearance order
	CountryIDs []int32
	RegionIDs  []int32
	IncomeIDs  []int32

	// Dictionaries (ID -> String)
	CountryDict []string
	RegionDict  []string
	IncomeDict  []string
}

// Len is the number of rows.
func (cs *ColumnStore) Len() int {
	return len(cs.CountryIDs)
}

// number returns the cleaned value of col at row i.
func (cs *ColumnStore) number(col string, i int) float64 {
	vals, ok := cs.Numbers[col]
	if !ok || i >= len(vals) {
		return math.NaN()
	}
	return vals[i]
}
