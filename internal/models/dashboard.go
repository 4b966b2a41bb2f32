package models

import (
	"strings"

	"golang.org/x/text/cases"
)

// DashboardData is everything the backend serves, computed once per load.
type DashboardData struct {
	Columns []string                  `json:"columns"`
	Rows    map[string][]Row          `json:"-"`
	Scatter map[string]ScatterPayload `json:"-"`
	Pie     []PieSlice                `json:"pie"`
	PCP     PCPPayload                `json:"pcp"`

	// Countries is keyed by FoldName(country).
	Countries map[string]CountryInfo `json:"-"`
}

// CountryInfo is one country's full record as served by /country-info.
// Plain numbers are float64, cells with extra characters keep their raw
// text, empty cells are nil.
type CountryInfo struct {
	Name   string
	Fields map[string]any
}

// FoldName normalizes a country name for case-insensitive lookup.
// Casers are stateful, so each call builds its own.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// HasColumn reports whether col is a served indicator column.
func (d *DashboardData) HasColumn(col string) bool {
	_, ok := d.Rows[col]
	return ok
}
