package views

import (
	"math"
	"sort"
	"strings"

	"worldstats/internal/cache"
	"worldstats/internal/scale"
	"worldstats/internal/state"
	"worldstats/internal/svg"
)

const (
	radarSize    = 450
	radarRings   = 4
	radarDefault = "#ddd"

	radarNoData = "No data available for radar chart."
	radarFailed = "Failed to fetch data. Please try again later."
)

// RadarIndicators are the four fixed radar axes, clockwise from the top.
var RadarIndicators = []string{
	"Logged GDP per capita",
	"Population: Labor force participation (%)",
	"Total tax rate",
	"Social support",
}

var radarCaptions = map[string]string{
	"Logged GDP per capita":                     "GDP per capita",
	"Population: Labor force participation (%)": "Labor force participation",
	"Total tax rate":                            "Total tax rate",
	"Social support":                            "Social support",
}

// RadarPalette is cycled by a country's position in the sorted selection.
var RadarPalette = []string{
	"#ff6384", // pink
	"#36a2eb", // blue
	"#ffce56", // yellow
	"#4bc0c0", // teal
	"#9966ff", // purple
	"#ff9f40", // orange
}

const radarFillOpacity = "0.6"

// RadarSeries is one polygon. Values follow RadarIndicators and lie in
// [0, 1] as a fraction of the radius.
type RadarSeries struct {
	Country string
	Color   string
	Values  []float64
}

type RadarLayout struct {
	Series []RadarSeries
	// Default is set for the all-zero shape drawn when nothing is clicked.
	Default bool
	Message string
}

// RadarView compares the clicked countries on four indicators.
type RadarView struct {
	cache *cache.Cache
}

func NewRadarView(c *cache.Cache) *RadarView { return &RadarView{cache: c} }

func (r *RadarView) Name() string { return "radar" }

func (r *RadarView) Deps() state.Field { return state.RadarData }

func (r *RadarView) Size() (int, int) { return radarSize, radarSize + 60 }

// Layout normalizes each indicator over the selected countries only, using
// a cushioned scale. Values that are not numbers sit at the low end.
func (r *RadarView) Layout() RadarLayout {
	slot := &r.cache.Radar
	switch {
	case slot.Failed():
		return RadarLayout{Message: radarFailed}
	case !slot.Loaded:
		return RadarLayout{
			Default: true,
			Series:  []RadarSeries{{Color: radarDefault, Values: make([]float64, len(RadarIndicators))}},
		}
	case len(slot.Value) == 0:
		return RadarLayout{Message: radarNoData}
	}

	countries := make([]string, 0, len(slot.Value))
	for c := range slot.Value {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	scales := make([]scale.Cushioned, len(RadarIndicators))
	for i, ind := range RadarIndicators {
		vals := make([]float64, len(countries))
		for j, c := range countries {
			vals[j] = metric(slot.Value[c][ind].Value.Float())
		}
		scales[i] = scale.NewCushioned(vals)
	}

	var l RadarLayout
	for j, c := range countries {
		s := RadarSeries{Country: c, Color: RadarPalette[j%len(RadarPalette)], Values: make([]float64, len(RadarIndicators))}
		for i, ind := range RadarIndicators {
			s.Values[i] = scales[i].Map(metric(slot.Value[c][ind].Value.Float()))
		}
		l.Series = append(l.Series, s)
	}
	return l
}

// metric turns a missing reading into NaN.
func metric(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}

// radarPoint places fraction t of the radius on axis i.
func radarPoint(i int, t float64) (x, y float64) {
	a := 2 * math.Pi * float64(i) / float64(len(RadarIndicators))
	r := t * radarSize / 2 * 0.8
	return radarSize/2 + r*math.Sin(a), radarSize/2 - r*math.Cos(a)
}

func radarPolygon(values []float64) string {
	pts := make([]string, len(values))
	for i, v := range values {
		x, y := radarPoint(i, v)
		pts[i] = svg.F(x) + "," + svg.F(y)
	}
	return strings.Join(pts, " ")
}

func (r *RadarView) Render(state.Snapshot) *svg.Node {
	const title = "Country Performance Radar"
	l := r.Layout()
	w, h := r.Size()
	if l.Message != "" {
		return placeholder(float64(w), float64(h), title, l.Message)
	}

	doc := svg.Document(float64(w), float64(h))
	doc.Add(svg.Text(radarSize/2, 20, title, "class", "title", "text-anchor", "middle", "font-size", "16"))

	grid := svg.El("g", "class", "scales")
	for k := 1; k <= radarRings; k++ {
		ring := make([]float64, len(RadarIndicators))
		for i := range ring {
			ring[i] = float64(k) / radarRings
		}
		grid.Add(svg.El("polygon", "points", radarPolygon(ring), "fill", "none", "stroke", "#ccc"))
	}
	for i, ind := range RadarIndicators {
		x, y := radarPoint(i, 1)
		grid.Add(svg.El("line", "x1", svg.F(radarSize/2), "y1", svg.F(radarSize/2),
			"x2", svg.F(x), "y2", svg.F(y), "stroke", "#ccc"))
		cx, cy := radarPoint(i, 1.12)
		grid.Add(svg.Text(cx, cy, radarCaptions[ind], "class", "caption", "text-anchor", "middle", "font-size", "12"))
	}
	doc.Add(grid)

	shapes := svg.El("g", "class", "shapes")
	for _, s := range l.Series {
		shapes.Add(svg.El("polygon", "class", "shape", "data-name", s.Country, "points", radarPolygon(s.Values),
			"fill", s.Color, "fill-opacity", radarFillOpacity, "stroke", s.Color))
	}
	doc.Add(shapes)

	if !l.Default {
		legend := svg.El("g", "class", "legend")
		for i, s := range l.Series {
			y := float64(radarSize + 10 + 16*(i/3))
			x := float64(20 + 140*(i%3))
			legend.Add(svg.El("rect", "x", svg.F(x), "y", svg.F(y), "width", "12", "height", "12", "fill", s.Color))
			legend.Add(svg.Text(x+16, y+10, s.Country, "font-size", "12"))
		}
		doc.Add(legend)
	}
	return doc
}
