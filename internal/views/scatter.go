package views

import (
	"worldstats/internal/cache"
	"worldstats/internal/models"
	"worldstats/internal/scale"
	"worldstats/internal/state"
	"worldstats/internal/svg"
)

const (
	scatterWidth  = 720
	scatterHeight = 520
	pointRadius   = 5
	pointFill     = "#69b3a2"

	scatterTooltip = "Country: {country}<br>Value: {value}"
)

// Margins of a plot area inside its surface.
type Margins struct {
	Top, Right, Bottom, Left float64
}

var scatterMargins = Margins{Top: 50, Right: 30, Bottom: 90, Left: 100}

// PlacedPoint is a data point with its position inside the plot area.
type PlacedPoint struct {
	models.ScatterPoint
	X, Y float64
}

type ScatterLayout struct {
	Column string
	// Width and Height are the plot area, the brush extent.
	Width, Height float64
	X, Y          scale.Linear
	Points        []PlacedPoint
	Message       string
}

// ScatterView plots happiness score against the active column and turns
// brush gestures into the highlight selection.
type ScatterView struct {
	store *state.Store
	cache *cache.Cache
}

func NewScatterView(store *state.Store, c *cache.Cache) *ScatterView {
	return &ScatterView{store: store, cache: c}
}

func (s *ScatterView) Name() string { return "scatter" }

func (s *ScatterView) Deps() state.Field { return state.ActiveColumn | state.ScatterData }

func (s *ScatterView) Size() (int, int) { return scatterWidth, scatterHeight }

// Layout fits a niced linear scale to each axis. Points with a missing
// value, or beyond the shortest of the three arrays, are left out.
func (s *ScatterView) Layout() ScatterLayout {
	slot := &s.cache.Scatter
	l := ScatterLayout{
		Column: slot.Value.Column,
		Width:  scatterWidth - scatterMargins.Left - scatterMargins.Right,
		Height: scatterHeight - scatterMargins.Top - scatterMargins.Bottom,
	}
	l.Message, _ = slotMessage(slot)

	pts := slot.Value.Points()
	if len(pts) == 0 {
		if l.Message == "" {
			l.Message = NoDataText
		}
		return l
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.Score, p.Value
	}
	x0, x1, _ := scale.Extent(xs)
	y0, y1, _ := scale.Extent(ys)
	l.X = scale.NewLinear(x0, x1, 0, l.Width).Nice(scale.DefaultTicks)
	l.Y = scale.NewLinear(y0, y1, l.Height, 0).Nice(scale.DefaultTicks)

	l.Points = make([]PlacedPoint, len(pts))
	for i, p := range pts {
		l.Points[i] = PlacedPoint{ScatterPoint: p, X: l.X.Map(p.Score), Y: l.Y.Map(p.Value)}
	}
	return l
}

func (s *ScatterView) Render(state.Snapshot) *svg.Node {
	l := s.Layout()
	title := "Scatter Plot of Happiness vs. " + l.Column
	if len(l.Points) == 0 {
		return placeholder(scatterWidth, scatterHeight, title, l.Message)
	}

	doc := svg.Document(scatterWidth, scatterHeight)
	g := svg.El("g", "transform", "translate("+svg.F(scatterMargins.Left)+","+svg.F(scatterMargins.Top)+")")
	g.Add(svg.El("rect", "class", "brush", "width", svg.F(l.Width), "height", svg.F(l.Height),
		"fill", "none", "pointer-events", "all"))
	for _, p := range l.Points {
		g.Add(svg.El("circle", "class", "point", "data-name", p.Country,
			"cx", svg.F(p.X), "cy", svg.F(p.Y), "r", svg.F(pointRadius), "fill", pointFill))
	}
	g.Add(axisBottom(l.X, l.Height), axisLeft(l.Y, 0))
	g.Add(svg.Text(l.Width/2, l.Height+40, "Happiness Score", "class", "axis-label", "text-anchor", "end", "font-size", "14"))
	g.Add(svg.Text(-l.Height/2, -60, l.Column, "class", "axis-label", "text-anchor", "end",
		"transform", "rotate(-90)", "font-size", "14"))
	doc.Add(g)

	doc.Add(svg.Text(l.Width/2+scatterMargins.Left, scatterMargins.Top/2, title,
		"class", "title", "text-anchor", "middle", "font-size", "16", "text-decoration", "underline"))
	return doc
}

// Brush reports the points inside the rectangle with corners (x0, y0) and
// (x1, y1), in plot-area pixels, as the highlight selection. Bounds are
// inclusive. A rectangle without area clears the highlight.
func (s *ScatterView) Brush(x0, y0, x1, y1 float64) {
	if x0 == x1 || y0 == y1 {
		s.store.SetHighlightedCountries(state.Names{})
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	hit := state.Names{}
	for _, p := range s.Layout().Points {
		if x0 <= p.X && p.X <= x1 && y0 <= p.Y && p.Y <= y1 {
			hit[p.Country] = struct{}{}
		}
	}
	s.store.SetHighlightedCountries(hit)
}

// Tooltip shows the active-column value of a plotted country.
func (s *ScatterView) Tooltip(_ state.Snapshot, name string) (string, bool) {
	for _, p := range s.cache.Scatter.Value.Points() {
		if p.Country == name {
			return tooltip(scatterTooltip, map[string]any{"country": name, "value": fixed2(p.Value)}), true
		}
	}
	return "", false
}

// axisBottom draws a horizontal axis at y.
func axisBottom(l scale.Linear, y float64) *svg.Node {
	r0, r1 := l.Range()
	g := svg.El("g", "class", "axis", "transform", "translate(0,"+svg.F(y)+")")
	g.Add(svg.El("path", "d", "M"+svg.F(r0)+",0H"+svg.F(r1), "stroke", "black"))
	for _, t := range l.Ticks(scale.DefaultTicks) {
		x := l.Map(t)
		g.Add(svg.El("line", "x1", svg.F(x), "x2", svg.F(x), "y2", "6", "stroke", "black"))
		g.Add(svg.Text(x, 18, svg.F(t), "text-anchor", "middle", "font-size", "10"))
	}
	return g
}

// axisLeft draws a vertical axis at x.
func axisLeft(l scale.Linear, x float64) *svg.Node {
	r0, r1 := l.Range()
	g := svg.El("g", "class", "axis", "transform", "translate("+svg.F(x)+",0)")
	g.Add(svg.El("path", "d", "M0,"+svg.F(r0)+"V"+svg.F(r1), "stroke", "black"))
	for _, t := range l.Ticks(scale.DefaultTicks) {
		y := l.Map(t)
		g.Add(svg.El("line", "x2", "-6", "y1", svg.F(y), "y2", svg.F(y), "stroke", "black"))
		g.Add(svg.Text(-9, y, svg.F(t), "text-anchor", "end", "dominant-baseline", "middle", "font-size", "10"))
	}
	return g
}
