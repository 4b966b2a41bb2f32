package models

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// ScatterPayload holds three parallel arrays for one indicator column.
// Column must be set before unmarshalling when the payload may carry
// more than one indicator key.
type ScatterPayload struct {
	Column    string
	Ladder    []Value
	Values    []Value
	Countries []string
}

// ScatterPoint is one plottable (score, value) pair.
type ScatterPoint struct {
	Country string
	Score   float64
	Value   float64
}

func (p ScatterPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		ScatterLadder:  p.Ladder,
		p.Column:       p.Values,
		ScatterCountry: p.Countries,
	})
}

func (p *ScatterPayload) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	col := p.Column
	if col == "" {
		for k := range raw {
			if k != ScatterLadder && k != ScatterCountry {
				col = k
				break
			}
		}
	}
	out := ScatterPayload{Column: col}
	if msg, ok := raw[ScatterLadder]; ok {
		if err := json.Unmarshal(msg, &out.Ladder); err != nil {
			return fmt.Errorf("%s: %w", ScatterLadder, err)
		}
	}
	if msg, ok := raw[col]; ok {
		if err := json.Unmarshal(msg, &out.Values); err != nil {
			return fmt.Errorf("%s: %w", col, err)
		}
	}
	if msg, ok := raw[ScatterCountry]; ok {
		if err := json.Unmarshal(msg, &out.Countries); err != nil {
			return fmt.Errorf("%s: %w", ScatterCountry, err)
		}
	}
	*p = out
	return nil
}

// Points pairs the arrays index by index. Arrays of unequal length are
// truncated to the shortest, and positions with a missing value are
// dropped.
func (p ScatterPayload) Points() []ScatterPoint {
	n := min(len(p.Ladder), len(p.Values), len(p.Countries))
	pts := make([]ScatterPoint, 0, n)
	for i := 0; i < n; i++ {
		if !p.Ladder[i].OK || !p.Values[i].OK {
			continue
		}
		pts = append(pts, ScatterPoint{Country: p.Countries[i], Score: p.Ladder[i].V, Value: p.Values[i].V})
	}
	return pts
}

// PCPRow is a parallel-coordinates row with dictionary-encoded labels.
type PCPRow struct {
	Country int
	Region  int
	Income  int
	Values  map[string]Value
}

func (r PCPRow) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Values)+3)
	for k, v := range r.Values {
		m[k] = v
	}
	m[ColCountry] = r.Country
	m[ColRegion] = r.Region
	m[ColIncome] = r.Income
	return json.Marshal(m)
}

func (r *PCPRow) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = PCPRow{Country: -1, Region: -1, Income: -1, Values: make(map[string]Value, len(raw))}
	for k, msg := range raw {
		var v Value
		_ = v.UnmarshalJSON(msg)
		switch k {
		case ColCountry:
			r.Country = code(v)
		case ColRegion:
			r.Region = code(v)
		case ColIncome:
			r.Income = code(v)
		default:
			r.Values[k] = v
		}
	}
	return nil
}

// code converts a decoded number into a dictionary code, -1 when the
// number is missing or not integral.
func code(v Value) int {
	if !v.OK || v.V != math.Trunc(v.V) || v.V < 0 {
		return -1
	}
	return int(v.V)
}

// PCPPayload is the parallel-coordinates dataset plus its decode tables,
// keyed by categorical column and then by the code's decimal string.
type PCPPayload struct {
	Data     []PCPRow                     `json:"data"`
	Mappings map[string]map[string]string `json:"mappings"`
}

// PCPLine is a decoded parallel-coordinates row. Values follow the
// dimension order passed to Decode.
type PCPLine struct {
	Country string
	Region  string
	Income  string
	Values  []Value
}

// Lookup decodes one categorical code.
func (p PCPPayload) Lookup(col string, c int) (string, error) {
	name, ok := p.Mappings[col][strconv.Itoa(c)]
	if !ok {
		return "", fmt.Errorf("%s code %d: %w", col, c, ErrDecode)
	}
	return name, nil
}

// Decode resolves every row's identifiers. Rows with a country, region or
// income code that has no mapping are skipped and reported in skipped.
func (p PCPPayload) Decode(dims []string) (lines []PCPLine, skipped []error) {
	lines = make([]PCPLine, 0, len(p.Data))
	for _, r := range p.Data {
		country, err := p.Lookup(ColCountry, r.Country)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		region, err := p.Lookup(ColRegion, r.Region)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		income, err := p.Lookup(ColIncome, r.Income)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		vals := make([]Value, len(dims))
		for i, d := range dims {
			vals[i] = r.Values[d]
		}
		lines = append(lines, PCPLine{Country: country, Region: region, Income: income, Values: vals})
	}
	return lines, skipped
}
