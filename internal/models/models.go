package models

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Well-known column names of the happiness dataset.
const (
	ColCountry     = "Country name"
	ColRegion      = "Region"
	ColIncome      = "Income Category"
	ColLadder      = "Ladder score"
	DefaultColumn  = "GDP per capita"
	ScatterLadder  = "ladder_score"
	ScatterCountry = "country_name"
)

// PCPDimensions is the fixed dimension order of the parallel-coordinates payload.
var PCPDimensions = []string{
	ColLadder,
	"GDP per capita",
	"Social support",
	"Healthy life expectancy",
	"Freedom to make life choices",
	"Generosity",
	"Perceptions of corruption",
}

// IsCategorical reports whether col is one of the identity/label columns.
func IsCategorical(col string) bool {
	return col == ColCountry || col == ColRegion || col == ColIncome
}

var (
	// ErrMissingValue marks a row without a usable number for a dimension.
	ErrMissingValue = errors.New("missing value")
	// ErrDecode marks an encoded identifier without a mapping entry.
	ErrDecode = errors.New("no mapping for encoded identifier")
)

// Value is an optional indicator reading. The zero Value is missing.
type Value struct {
	V  float64
	OK bool
}

// Num returns a present Value. NaN and infinities are treated as missing.
func Num(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, OK: true}
}

// Float returns the value or ErrMissingValue.
func (v Value) Float() (float64, error) {
	if !v.OK {
		return 0, ErrMissingValue
	}
	return v.V, nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'g', -1, 64), nil
}

// UnmarshalJSON accepts JSON numbers; every other token decodes to missing.
func (v *Value) UnmarshalJSON(b []byte) error {
	*v = Value{}
	f, err := strconv.ParseFloat(string(b), 64)
	if err == nil {
		*v = Num(f)
	}
	return nil
}

// Metric is a Value that also coerces numeric strings such as "65.4%".
type Metric struct {
	Value
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	m.Value = Value{}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, "%", "")), 64)
		if err == nil {
			m.Value = Num(f)
		}
		return nil
	}
	return m.Value.UnmarshalJSON(b)
}

// Row is one country's record.
type Row struct {
	Country string
	Region  string
	Income  string
	Values  map[string]Value
}

// Get returns the value of col, missing when absent.
func (r Row) Get(col string) Value {
	return r.Values[col]
}

func (r Row) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Values)+3)
	for k, v := range r.Values {
		m[k] = v
	}
	m[ColCountry] = r.Country
	m[ColRegion] = r.Region
	m[ColIncome] = r.Income
	return json.Marshal(m)
}

func (r *Row) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Row{Values: make(map[string]Value, len(raw))}
	for k, msg := range raw {
		switch k {
		case ColCountry:
			_ = json.Unmarshal(msg, &r.Country)
		case ColRegion:
			_ = json.Unmarshal(msg, &r.Region)
		case ColIncome:
			_ = json.Unmarshal(msg, &r.Income)
		default:
			var v Value
			_ = v.UnmarshalJSON(msg)
			r.Values[k] = v
		}
	}
	return nil
}

// PieSlice is the mean happiness score of one region.
type PieSlice struct {
	Region string  `json:"Region"`
	Score  float64 `json:"Ladder score"`
}

// RadarPayload maps a country name to its raw indicator readings.
type RadarPayload map[string]map[string]Metric
