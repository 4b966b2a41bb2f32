package views

import (
	"worldstats/internal/cache"
	"worldstats/internal/geo"
	"worldstats/internal/models"
	"worldstats/internal/scale"
	"worldstats/internal/state"
	"worldstats/internal/svg"
)

const (
	mapWidth   = 1000
	mapHeight  = 480
	mapNeutral = "#ccc"
	rampLow    = "#ffffff"
	rampHigh   = "#0000ff"

	mapTooltip   = "Country: {country}<br>Value: {value}"
	notAvailable = "Data Not Available"
)

// MapProjection places the world on the map surface.
var MapProjection = geo.Mercator{Scale: 180, TranslateX: mapWidth / 2, TranslateY: 600 / 2}

// MapCountry is one drawn boundary.
type MapCountry struct {
	Name     string
	Path     string
	Fill     string
	Outlined bool
	Value    models.Value
}

type LegendEntry struct {
	Value float64
	Color string
}

type MapLayout struct {
	Column    string
	Countries []MapCountry
	// Legend is empty when no country has a value.
	Legend  []LegendEntry
	Message string
}

// MapView is the choropleth. It keeps its own click-tracking set and
// reports the whole accumulated set on every click.
type MapView struct {
	store  *state.Store
	cache  *cache.Cache
	bounds *geo.Boundaries
	clicks state.Names
}

func NewMapView(store *state.Store, c *cache.Cache, bounds *geo.Boundaries) *MapView {
	if bounds == nil {
		bounds = &geo.Boundaries{}
	}
	return &MapView{store: store, cache: c, bounds: bounds, clicks: state.Names{}}
}

func (m *MapView) Name() string { return "map" }

func (m *MapView) Deps() state.Field {
	return state.ActiveColumn | state.ClickedCountries | state.ActiveRegions |
		state.HighlightedCountries | state.MapData
}

func (m *MapView) Size() (int, int) { return mapWidth, mapHeight }

// rowIndex keys rows by country name; the first row of a name wins.
func rowIndex(rows []models.Row) map[string]models.Row {
	idx := make(map[string]models.Row, len(rows))
	for _, r := range rows {
		if _, dup := idx[r.Country]; !dup {
			idx[r.Country] = r
		}
	}
	return idx
}

// Layout colors every boundary. A country is filled from the ramp only
// when it has a value and either passes the region filter or is
// highlighted; every other country is neutral.
func (m *MapView) Layout(snap state.Snapshot) MapLayout {
	slot := &m.cache.Map
	column := slot.Key
	if column == "" {
		column = snap.ActiveColumn
	}
	out := MapLayout{Column: column}
	out.Message, _ = slotMessage(slot)

	rows := rowIndex(slot.Value)
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v := r.Get(column); v.OK {
			values = append(values, v.V)
		}
	}

	var ramp *scale.Sequential
	if len(values) > 0 {
		hi := scale.Max(values)
		s, err := scale.NewSequential(0, hi, rampLow, rampHigh)
		if err == nil {
			ramp = &s
			out.Legend = []LegendEntry{
				{0, s.Color(0)},
				{hi / 2, s.Color(hi / 2)},
				{hi, s.Color(hi)},
			}
		}
	}

	outlined := snap.HighlightedCountries.Union(snap.ClickedCountries)
	for _, c := range m.bounds.Countries {
		mc := MapCountry{
			Name:     c.Name,
			Path:     MapProjection.Path(c.Polygons),
			Fill:     mapNeutral,
			Outlined: outlined.Has(c.Name),
		}
		if r, ok := rows[c.Name]; ok {
			mc.Value = r.Get(column)
			passes := snap.ActiveRegions.Has(r.Region) || snap.HighlightedCountries.Has(c.Name)
			if mc.Value.OK && ramp != nil && passes {
				mc.Fill = ramp.Color(mc.Value.V)
			}
		}
		out.Countries = append(out.Countries, mc)
	}
	return out
}

func (m *MapView) Render(snap state.Snapshot) *svg.Node {
	m.clicks = snap.ClickedCountries.Clone()
	l := m.Layout(snap)

	doc := svg.Document(mapWidth, mapHeight)
	doc.Add(svg.El("rect", "width", svg.F(mapWidth), "height", svg.F(mapHeight), "fill", "lightblue"))

	layer := svg.El("g", "class", "countries")
	for _, c := range l.Countries {
		p := svg.El("path", "class", "country", "data-name", c.Name, "d", c.Path, "fill", c.Fill)
		if c.Outlined {
			p.Set("stroke", "black").Set("stroke-width", "2")
		} else {
			p.Set("stroke", "none").Set("stroke-width", "0")
		}
		layer.Add(p)
	}
	doc.Add(layer)

	doc.Add(svg.Text(mapWidth/2, 20, "World Map Visualization of "+l.Column,
		"class", "title", "text-anchor", "middle", "font-size", "20"))

	if len(l.Legend) > 0 {
		legend := svg.El("g", "class", "legend", "transform", "translate(900,20)")
		for i, e := range l.Legend {
			y := float64(i * 30)
			legend.Add(svg.El("rect", "width", "20", "height", "20", "y", svg.F(y), "fill", e.Color))
			legend.Add(svg.Text(30, y+15, fixed2(e.Value)))
		}
		doc.Add(legend)
		doc.Add(svg.Text(900, 10, "Value scale"))
	}

	if l.Message != "" {
		doc.Add(svg.Text(mapWidth/2, mapHeight/2, l.Message, "class", "placeholder", "text-anchor", "middle"))
	}
	return doc
}

// Click toggles name in the click-tracking set and reports the whole set.
func (m *MapView) Click(name string) {
	if m.clicks.Has(name) {
		delete(m.clicks, name)
	} else {
		m.clicks[name] = struct{}{}
	}
	m.store.SetClickedCountries(m.clicks)
}

// Tooltip describes the country under the pointer.
func (m *MapView) Tooltip(snap state.Snapshot, name string) (string, bool) {
	column := m.cache.Map.Key
	if column == "" {
		column = snap.ActiveColumn
	}
	value := notAvailable
	if r, ok := rowIndex(m.cache.Map.Value)[name]; ok {
		if v := r.Get(column); v.OK {
			value = fixed2(v.V)
		}
	}
	return tooltip(mapTooltip, map[string]any{"country": name, "value": value}), true
}
