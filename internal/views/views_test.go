package views

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldstats/internal/cache"
	"worldstats/internal/coord"
	"worldstats/internal/engine"
	"worldstats/internal/geo"
	"worldstats/internal/models"
	"worldstats/internal/state"
	"worldstats/internal/svg"
)

const testCSV = `Country name,Region,Income Category,Ladder score,GDP per capita,Social support
CountryA,Europe,High income,5,1.5,0.9
CountryB,Asia,Low income,7,2.5,0.8
CountryC,Europe,High income,3,1.0,
`

// dataFetcher serves an aggregated dataset without HTTP.
type dataFetcher struct {
	data *models.DashboardData
}

func (f dataFetcher) Rows(_ context.Context, col string) ([]models.Row, error) {
	return f.data.Rows[col], nil
}

func (f dataFetcher) Scatter(_ context.Context, col string) (models.ScatterPayload, error) {
	return f.data.Scatter[col], nil
}

func (f dataFetcher) Pie(context.Context) ([]models.PieSlice, error) { return f.data.Pie, nil }

func (f dataFetcher) PCP(context.Context) (models.PCPPayload, error) { return f.data.PCP, nil }

func (f dataFetcher) CountryInfo(_ context.Context, names []string) (models.RadarPayload, error) {
	raw := map[string]map[string]any{}
	for _, n := range names {
		info := f.data.Countries[models.FoldName(n)]
		raw[info.Name] = info.Fields
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var p models.RadarPayload
	return p, json.Unmarshal(b, &p)
}

func square(x float64) [][][][]float64 {
	return [][][][]float64{{{{x, 0}, {x + 5, 0}, {x + 5, 5}, {x, 5}, {x, 0}}}}
}

var testBounds = &geo.Boundaries{Countries: []geo.Country{
	{Name: "CountryA", Polygons: square(0)},
	{Name: "CountryB", Polygons: square(10)},
	{Name: "CountryC", Polygons: square(20)},
	{Name: "Atlantis", Polygons: square(30)},
}}

type fixture struct {
	store   *state.Store
	loop    *coord.Loop
	cache   *cache.Cache
	mapView *MapView
	scatter *ScatterView
	pcp     *PCPView
	pie     *PieView
	radar   *RadarView
}

// newFixture wires a session whose fetches complete synchronously.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cs, err := engine.ReadColumnar(strings.NewReader(testCSV))
	require.NoError(t, err)
	data := cs.Aggregate()

	f := &fixture{store: state.NewStore(data.Columns, []string{"Europe", "Asia"})}
	f.loop = coord.New(f.store, nil)
	f.cache = cache.New(context.Background(), f.loop, dataFetcher{data}, cache.Options{
		Sequenced: true,
		Go:        func(fn func()) { fn() },
	})
	f.mapView = NewMapView(f.store, f.cache, testBounds)
	f.scatter = NewScatterView(f.store, f.cache)
	f.pcp = NewPCPView(f.cache, nil)
	f.pie = NewPieView(f.store, f.cache)
	f.radar = NewRadarView(f.cache)
	return f
}

// do runs a gesture on the loop and flushes any fetch it started.
func (f *fixture) do(ev func()) {
	f.loop.Dispatch(ev)
	f.loop.Drain()
}

func (f *fixture) load() {
	f.do(func() {
		f.cache.Load(f.store.ActiveColumn())
		f.cache.LoadStatic()
	})
}

func countryByName(l MapLayout, name string) MapCountry {
	for _, c := range l.Countries {
		if c.Name == name {
			return c
		}
	}
	return MapCountry{}
}

func lineCountries(l PCPLayout) []string {
	var out []string
	for _, ln := range l.Lines {
		out = append(out, ln.Country)
	}
	return out
}

func TestMapColorScale(t *testing.T) {
	f := newFixture(t)
	f.cache.Map = cache.Slot[[]models.Row]{Loaded: true, Key: "X", Value: []models.Row{
		{Country: "CountryA", Region: "Europe", Values: map[string]models.Value{"X": models.Num(0)}},
		{Country: "CountryB", Region: "Asia", Values: map[string]models.Value{"X": models.Num(10)}},
		{Country: "CountryC", Region: "Europe", Values: map[string]models.Value{}},
	}}
	l := f.mapView.Layout(f.store.Snapshot())

	assert.Equal(t, "#ffffff", countryByName(l, "CountryA").Fill, "zero is the low end")
	assert.Equal(t, "#0000ff", countryByName(l, "CountryB").Fill, "max is the high end")
	assert.Equal(t, mapNeutral, countryByName(l, "CountryC").Fill, "missing value")
	assert.Equal(t, mapNeutral, countryByName(l, "Atlantis").Fill, "no row")

	require.Len(t, l.Legend, 3)
	assert.Equal(t, 5.0, l.Legend[1].Value)
	assert.Equal(t, "#0000ff", l.Legend[2].Color)
}

func TestMapOutlinesHighlightAndClicks(t *testing.T) {
	f := newFixture(t)
	f.load()
	f.do(func() {
		f.store.SetHighlightedCountries(state.NewNames("CountryA"))
		f.store.SetClickedCountries(state.NewNames("CountryC"))
	})
	l := f.mapView.Layout(f.store.Snapshot())
	assert.True(t, countryByName(l, "CountryA").Outlined)
	assert.False(t, countryByName(l, "CountryB").Outlined)
	assert.True(t, countryByName(l, "CountryC").Outlined)

	doc := f.mapView.Render(f.store.Snapshot())
	for _, p := range doc.Find(svg.ByClass("country")) {
		name, _ := p.Attr("data-name")
		width, _ := p.Attr("stroke-width")
		if name == "CountryA" || name == "CountryC" {
			assert.Equal(t, "2", width, name)
		} else {
			assert.Equal(t, "0", width, name)
		}
	}
}

func TestMapClickReportsAccumulatedSet(t *testing.T) {
	f := newFixture(t)
	var reported []state.Names
	f.loop.Subscribe("probe", state.ClickedCountries, func(s state.Snapshot, _ state.Field) {
		reported = append(reported, s.ClickedCountries)
	})

	f.do(func() { f.mapView.Click("CountryA") })
	f.do(func() { f.mapView.Click("CountryB") })
	f.do(func() { f.mapView.Click("CountryA") })

	require.Len(t, reported, 3)
	assert.True(t, reported[0].Equal(state.NewNames("CountryA")))
	assert.True(t, reported[1].Equal(state.NewNames("CountryA", "CountryB")))
	assert.True(t, reported[2].Equal(state.NewNames("CountryB")))
}

func TestMapTooltip(t *testing.T) {
	f := newFixture(t)
	f.load()
	snap := f.store.Snapshot()

	tip, ok := f.mapView.Tooltip(snap, "CountryB")
	require.True(t, ok)
	assert.Equal(t, "Country: CountryB<br>Value: 2.50", tip)

	tip, _ = f.mapView.Tooltip(snap, "Atlantis")
	assert.Equal(t, "Country: Atlantis<br>Value: Data Not Available", tip)
}

func TestMapWithoutData(t *testing.T) {
	f := newFixture(t)
	f.cache.Map = cache.Slot[[]models.Row]{Loaded: true, Key: "GDP per capita"}
	l := f.mapView.Layout(f.store.Snapshot())
	require.Len(t, l.Countries, 4)
	for _, c := range l.Countries {
		assert.Equal(t, mapNeutral, c.Fill)
	}
	assert.Empty(t, l.Legend)
	_, ok := Placeholder(f.mapView.Render(f.store.Snapshot()))
	assert.False(t, ok)

	f.cache.Map = cache.Slot[[]models.Row]{Err: assert.AnError}
	msg, ok := Placeholder(f.mapView.Render(f.store.Snapshot()))
	require.True(t, ok)
	assert.Equal(t, FetchFailedText, msg)
}

func TestScatterLayoutDropsUnusableRows(t *testing.T) {
	f := newFixture(t)
	f.cache.Scatter = cache.Slot[models.ScatterPayload]{Loaded: true, Value: models.ScatterPayload{
		Column:    "GDP per capita",
		Ladder:    []models.Value{models.Num(5), models.Num(7), models.Num(3), models.Num(4)},
		Values:    []models.Value{models.Num(1), models.Num(2), {}, models.Num(4)},
		Countries: []string{"CountryA", "CountryB", "CountryC"},
	}}
	l := f.scatter.Layout()
	require.Len(t, l.Points, 2)
	assert.Equal(t, "CountryA", l.Points[0].Country)

	x0, x1 := l.X.Domain()
	assert.Equal(t, 5.0, x0)
	assert.Equal(t, 7.0, x1)
	assert.InDelta(t, 0, l.Points[0].X, 1e-9)
	assert.InDelta(t, l.Height, l.Points[0].Y, 1e-9)
	assert.InDelta(t, l.Width, l.Points[1].X, 1e-9)
	assert.InDelta(t, 0, l.Points[1].Y, 1e-9)
}

func TestScatterBrushIsInclusive(t *testing.T) {
	f := newFixture(t)
	f.load()
	l := f.scatter.Layout()
	require.Len(t, l.Points, 3)

	var a PlacedPoint
	for _, p := range l.Points {
		if p.Country == "CountryA" {
			a = p
		}
	}
	// corners given in reverse order, point exactly on two edges
	f.do(func() { f.scatter.Brush(a.X+1, a.Y+1, a.X, a.Y) })
	assert.True(t, f.store.HighlightedCountries().Equal(state.NewNames("CountryA")))

	f.do(func() { f.scatter.Brush(0, 0, l.Width, l.Height) })
	assert.Equal(t, 3, f.store.HighlightedCountries().Len())
}

func TestScatterZeroAreaBrushClearsOnce(t *testing.T) {
	f := newFixture(t)
	f.load()
	f.do(func() { f.store.SetHighlightedCountries(state.NewNames("CountryA", "CountryB")) })

	var calls int
	f.loop.Subscribe("probe", state.HighlightedCountries, func(s state.Snapshot, _ state.Field) {
		calls++
		assert.Zero(t, s.HighlightedCountries.Len())
	})
	f.do(func() { f.scatter.Brush(100, 40, 100, 300) })

	assert.Equal(t, 1, calls)
	assert.Zero(t, f.store.HighlightedCountries().Len())
}

func TestScatterTooltipAndPlaceholder(t *testing.T) {
	f := newFixture(t)
	msg, ok := Placeholder(f.scatter.Render(f.store.Snapshot()))
	require.True(t, ok)
	assert.Equal(t, NoDataText, msg)

	f.load()
	tip, ok := f.scatter.Tooltip(f.store.Snapshot(), "CountryC")
	require.True(t, ok)
	assert.Equal(t, "Country: CountryC<br>Value: 1.00", tip)
	_, ok = f.scatter.Tooltip(f.store.Snapshot(), "Atlantis")
	assert.False(t, ok)
}

func TestPCPHighlightOverridesRegions(t *testing.T) {
	f := newFixture(t)
	f.load()
	f.do(func() {
		f.store.SetActiveRegions(state.NewNames("Oceania"))
		f.store.SetHighlightedCountries(state.NewNames("CountryB"))
	})
	l := f.pcp.Layout(f.store.Snapshot())
	assert.Equal(t, []string{"CountryB"}, lineCountries(l))
}

func TestPCPRegionFilter(t *testing.T) {
	f := newFixture(t)
	f.load()

	f.do(func() { f.store.SetActiveRegions(state.NewNames("Europe")) })
	assert.Equal(t, []string{"CountryA", "CountryC"}, lineCountries(f.pcp.Layout(f.store.Snapshot())))

	f.do(func() { f.store.SetActiveRegions(state.Names{}) })
	assert.Len(t, f.pcp.Layout(f.store.Snapshot()).Lines, 3, "no region filter draws every row")
}

func TestPCPMissingValuesBreakLines(t *testing.T) {
	f := newFixture(t)
	f.load()
	l := f.pcp.Layout(f.store.Snapshot())
	require.Len(t, l.Lines, 3)

	// CountryC has ladder and GDP, then nothing
	c := l.Lines[2]
	require.Len(t, c.Segments, 1)
	assert.Len(t, c.Segments[0], 2)

	x, _ := l.X.Map("GDP per capita")
	assert.InDelta(t, x, c.Segments[0][1][0], 1e-9)

	assert.Equal(t, l.Lines[0].Color, c.Color, "same region, same color")
	assert.NotEqual(t, l.Lines[1].Color, c.Color)
}

func TestPCPSkipsUndecodableRows(t *testing.T) {
	f := newFixture(t)
	f.cache.PCP = cache.Slot[models.PCPPayload]{Loaded: true, Value: models.PCPPayload{
		Data: []models.PCPRow{
			{Country: 0, Region: 0, Values: map[string]models.Value{models.ColLadder: models.Num(5)}},
			{Country: 9, Region: 0, Values: map[string]models.Value{models.ColLadder: models.Num(6)}},
		},
		Mappings: map[string]map[string]string{
			models.ColCountry: {"0": "CountryA"},
			models.ColRegion:  {"0": "Europe"},
			models.ColIncome:  {"0": "High income"},
		},
	}}
	l := f.pcp.Layout(f.store.Snapshot())
	assert.Equal(t, []string{"CountryA"}, lineCountries(l))

	tip, ok := f.pcp.Tooltip(f.store.Snapshot(), "CountryA")
	require.True(t, ok)
	assert.Equal(t, "Country: CountryA", tip)
}

func TestAxisLabel(t *testing.T) {
	assert.Equal(t, "Ladder score", axisLabel("Ladder score"))
	assert.Equal(t, "Freedom to ...", axisLabel("Freedom to make life choices"))
	assert.Equal(t, "Perceptions...", axisLabel("Perceptions of corruption"))
	assert.Equal(t, "Espérance d...", axisLabel("Espérance de vie en santé"))
	assert.Equal(t, "Espérance de v", axisLabel("Espérance de v"))
}

func TestPieOpacityFollowsLocalSelection(t *testing.T) {
	f := newFixture(t)
	f.load()
	for _, w := range f.pie.Layout().Wedges {
		assert.Equal(t, 1.0, w.Opacity, "full opacity before any click")
	}

	f.do(func() { f.pie.Click("Europe") })
	assert.True(t, f.store.ActiveRegions().Equal(state.NewNames("Europe")))
	assert.True(t, f.pie.Selected().Equal(state.NewNames("Europe")))

	wedges := f.pie.Layout().Wedges
	require.Len(t, wedges, 2)
	assert.Equal(t, "Asia", wedges[0].Region)
	assert.Equal(t, dimmedOpacity, wedges[0].Opacity)
	assert.Equal(t, 1.0, wedges[1].Opacity)

	f.do(func() { f.pie.Click("Europe") })
	assert.Zero(t, f.store.ActiveRegions().Len(), "toggled off")
	for _, w := range f.pie.Layout().Wedges {
		assert.Equal(t, dimmedOpacity, w.Opacity)
	}
}

func TestPieGeometry(t *testing.T) {
	f := newFixture(t)
	f.load()
	wedges := f.pie.Layout().Wedges
	require.Len(t, wedges, 2)

	// Asia (7) is largest and starts at twelve o'clock
	asia, europe := wedges[0], wedges[1]
	assert.InDelta(t, 0, asia.Start, 1e-9)
	assert.InDelta(t, 2*math.Pi*7/11, asia.End, 1e-9)
	assert.InDelta(t, asia.End, europe.Start, 1e-9)
	assert.InDelta(t, 2*math.Pi, europe.End, 1e-9)
	assert.NotEqual(t, asia.Color, europe.Color)

	tip, ok := f.pie.Tooltip(f.store.Snapshot(), "Europe")
	require.True(t, ok)
	assert.Equal(t, "Europe: 4.00", tip)

	doc := f.pie.Render(f.store.Snapshot())
	assert.Len(t, doc.Find(svg.ByClass("wedge")), 2)
}

func TestPiePlaceholder(t *testing.T) {
	f := newFixture(t)
	f.cache.Pie = cache.Slot[[]models.PieSlice]{Err: assert.AnError}
	msg, ok := Placeholder(f.pie.Render(f.store.Snapshot()))
	require.True(t, ok)
	assert.Equal(t, FetchFailedText, msg)
}

func metricOf(v float64) models.Metric { return models.Metric{Value: models.Num(v)} }

func TestRadarSingleCountryIsMidpoint(t *testing.T) {
	f := newFixture(t)
	f.cache.Radar = cache.Slot[models.RadarPayload]{Loaded: true, Value: models.RadarPayload{
		"Chile": {
			"Logged GDP per capita":                     metricOf(9.8),
			"Population: Labor force participation (%)": metricOf(62),
			"Social support":                            metricOf(0.88),
		},
	}}
	l := f.radar.Layout()
	require.Len(t, l.Series, 1)
	s := l.Series[0]
	assert.Equal(t, RadarPalette[0], s.Color)
	assert.InDelta(t, 0.5, s.Values[0], 1e-9)
	assert.InDelta(t, 0.5, s.Values[1], 1e-9)
	assert.InDelta(t, 0.1, s.Values[2], 1e-9, "missing tax rate sits at the low end")
	assert.InDelta(t, 0.5, s.Values[3], 1e-9)
}

func TestRadarScalesAcrossSelection(t *testing.T) {
	f := newFixture(t)
	payload := models.RadarPayload{}
	for i, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		payload[name] = map[string]models.Metric{"Total tax rate": metricOf(float64(i * 10))}
	}
	f.cache.Radar = cache.Slot[models.RadarPayload]{Loaded: true, Value: payload}
	l := f.radar.Layout()
	require.Len(t, l.Series, 7)

	assert.Equal(t, RadarPalette[0], l.Series[6].Color, "palette cycles")
	// domain [0, 60] widened to [-6, 66]
	assert.InDelta(t, 0.1+0.8*6/72, l.Series[0].Values[2], 1e-9)
	assert.InDelta(t, 0.9-0.8*6/72, l.Series[6].Values[2], 1e-9)
	for _, s := range l.Series {
		assert.Equal(t, 0.1, s.Values[0], "indicator missing for everyone")
	}
}

func TestRadarStates(t *testing.T) {
	f := newFixture(t)
	l := f.radar.Layout()
	require.True(t, l.Default)
	require.Len(t, l.Series, 1)
	assert.Equal(t, radarDefault, l.Series[0].Color)
	assert.Equal(t, []float64{0, 0, 0, 0}, l.Series[0].Values)

	f.cache.Radar = cache.Slot[models.RadarPayload]{Err: assert.AnError}
	msg, ok := Placeholder(f.radar.Render(f.store.Snapshot()))
	require.True(t, ok)
	assert.Equal(t, radarFailed, msg)

	f.cache.Radar = cache.Slot[models.RadarPayload]{Loaded: true, Value: models.RadarPayload{}}
	msg, _ = Placeholder(f.radar.Render(f.store.Snapshot()))
	assert.Equal(t, radarNoData, msg)
}

func TestRadarFetchesClickedCountries(t *testing.T) {
	f := newFixture(t)
	f.loop.Subscribe("radar-fetch", state.ClickedCountries, func(s state.Snapshot, _ state.Field) {
		f.cache.LoadRadar(s.ClickedCountries)
	})
	f.do(func() { f.mapView.Click("CountryB") })

	l := f.radar.Layout()
	require.Len(t, l.Series, 1)
	assert.Equal(t, "CountryB", l.Series[0].Country)
	assert.InDelta(t, 0.5, l.Series[0].Values[3], 1e-9)

	f.do(func() { f.mapView.Click("CountryB") })
	assert.True(t, f.radar.Layout().Default)
}

func TestRegionFilterScenario(t *testing.T) {
	f := newFixture(t)
	f.load()
	f.do(func() { f.pie.Click("Europe") })
	snap := f.store.Snapshot()

	// pie
	for _, w := range f.pie.Layout().Wedges {
		if w.Region == "Europe" {
			assert.Equal(t, 1.0, w.Opacity)
		} else {
			assert.Equal(t, dimmedOpacity, w.Opacity)
		}
	}
	// parallel coordinates
	assert.Equal(t, []string{"CountryA", "CountryC"}, lineCountries(f.pcp.Layout(snap)))
	// map
	l := f.mapView.Layout(snap)
	assert.NotEqual(t, mapNeutral, countryByName(l, "CountryA").Fill)
	assert.Equal(t, mapNeutral, countryByName(l, "CountryB").Fill)
	assert.NotEqual(t, mapNeutral, countryByName(l, "CountryC").Fill)

	// a brush over CountryB overrides the region filter
	var b PlacedPoint
	for _, p := range f.scatter.Layout().Points {
		if p.Country == "CountryB" {
			b = p
		}
	}
	f.do(func() { f.scatter.Brush(b.X-1, b.Y-1, b.X+1, b.Y+1) })
	snap = f.store.Snapshot()
	assert.Equal(t, []string{"CountryB"}, lineCountries(f.pcp.Layout(snap)))
	assert.NotEqual(t, mapNeutral, countryByName(f.mapView.Layout(snap), "CountryB").Fill)
}
