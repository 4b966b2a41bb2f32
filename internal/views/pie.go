package views

import (
	"math"
	"sort"

	"worldstats/internal/cache"
	"worldstats/internal/scale"
	"worldstats/internal/state"
	"worldstats/internal/svg"
)

const (
	pieWidth  = 360
	pieHeight = 360 + 80
	pieRadius = 180

	dimmedOpacity = 0.5
	pieTooltip    = "{region}: {score}"
)

// Wedge is one region's slice. Angles are in radians, clockwise from
// twelve o'clock.
type Wedge struct {
	Region     string
	Score      float64
	Start, End float64
	Color      string
	Opacity    float64
}

// Centroid is the label anchor, relative to the pie center.
func (w Wedge) Centroid() (x, y float64) {
	a := (w.Start + w.End) / 2
	r := pieRadius / 2.0
	return r * math.Sin(a), -r * math.Cos(a)
}

// Path is the wedge outline, relative to the pie center.
func (w Wedge) Path() string {
	x0, y0 := pieRadius*math.Sin(w.Start), -pieRadius*math.Cos(w.Start)
	x1, y1 := pieRadius*math.Sin(w.End), -pieRadius*math.Cos(w.End)
	large := "0"
	if w.End-w.Start > math.Pi {
		large = "1"
	}
	r := svg.F(pieRadius)
	if w.End-w.Start >= 2*math.Pi-1e-9 {
		// a full circle needs two arcs
		return "M0," + svg.F(-pieRadius) + "A" + r + "," + r + ",0,1,1,0," + svg.F(pieRadius) +
			"A" + r + "," + r + ",0,1,1,0," + svg.F(-pieRadius) + "Z"
	}
	return "M" + svg.F(x0) + "," + svg.F(y0) +
		"A" + r + "," + r + ",0," + large + ",1," + svg.F(x1) + "," + svg.F(y1) + "L0,0Z"
}

type PieLayout struct {
	Wedges  []Wedge
	Message string
}

// PieView draws the mean score per region. It owns a chart-local region
// selection toggled by clicking wedges, and is the only writer of the
// shared region filter.
type PieView struct {
	store    *state.Store
	cache    *cache.Cache
	selected state.Names
	clicked  bool
}

func NewPieView(store *state.Store, c *cache.Cache) *PieView {
	return &PieView{store: store, cache: c, selected: state.Names{}}
}

func (p *PieView) Name() string { return "pie" }

func (p *PieView) Deps() state.Field { return state.PieData | state.ActiveRegions }

func (p *PieView) Size() (int, int) { return pieWidth, pieHeight + 40 }

// Selected returns the chart-local region selection.
func (p *PieView) Selected() state.Names { return p.selected.Clone() }

// Layout sizes wedges by score, largest first, keeping the data order for
// ties. Until the first click every wedge is fully opaque; afterwards
// regions outside the local selection are dimmed.
func (p *PieView) Layout() PieLayout {
	slot := &p.cache.Pie
	var l PieLayout
	if msg, ok := slotMessage(slot); ok {
		l.Message = msg
		return l
	}
	slices := slot.Value
	if len(slices) == 0 {
		l.Message = NoDataText
		return l
	}

	regions := make([]string, len(slices))
	total := 0.0
	for i, s := range slices {
		regions[i] = s.Region
		if s.Score > 0 {
			total += s.Score
		}
	}
	colors := scale.NewOrdinal(scale.Category10, regions...)

	order := make([]int, len(slices))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return slices[order[a]].Score > slices[order[b]].Score })

	l.Wedges = make([]Wedge, len(slices))
	angle := 0.0
	for _, i := range order {
		s := slices[i]
		span := 0.0
		if total > 0 && s.Score > 0 {
			span = s.Score / total * 2 * math.Pi
		}
		w := Wedge{
			Region:  s.Region,
			Score:   s.Score,
			Start:   angle,
			End:     angle + span,
			Color:   colors.Color(s.Region),
			Opacity: 1,
		}
		if p.clicked && !p.selected.Has(s.Region) {
			w.Opacity = dimmedOpacity
		}
		l.Wedges[i] = w
		angle += span
	}
	return l
}

func (p *PieView) Render(state.Snapshot) *svg.Node {
	const title = "Average Happiness by Region"
	l := p.Layout()
	w, h := p.Size()
	if l.Message != "" {
		return placeholder(float64(w), float64(h), title, l.Message)
	}

	doc := svg.Document(float64(w), float64(h))
	g := svg.El("g", "transform", "translate("+svg.F(pieWidth/2)+","+svg.F(pieHeight/2)+")")
	for _, wd := range l.Wedges {
		arc := svg.El("g", "class", "arc")
		arc.Add(svg.El("path", "class", "wedge", "data-name", wd.Region, "d", wd.Path(),
			"fill", wd.Color, "stroke", "white", "stroke-width", "2", "opacity", svg.F(wd.Opacity)))
		cx, cy := wd.Centroid()
		arc.Add(svg.Text(cx, cy, wd.Region, "dy", "0.35em", "text-anchor", "middle"))
		g.Add(arc)
	}
	doc.Add(g)
	doc.Add(svg.Text(pieWidth/2, 20, title, "class", "title", "text-anchor", "middle",
		"font-size", "16", "font-weight", "bold"))
	return doc
}

// Click toggles region in the local selection and promotes the result to
// the shared region filter.
func (p *PieView) Click(region string) {
	p.clicked = true
	if p.selected.Has(region) {
		delete(p.selected, region)
	} else {
		p.selected[region] = struct{}{}
	}
	p.store.SetActiveRegions(p.selected)
}

// Tooltip shows a region's mean score.
func (p *PieView) Tooltip(_ state.Snapshot, region string) (string, bool) {
	for _, s := range p.cache.Pie.Value {
		if s.Region == region {
			return tooltip(pieTooltip, map[string]any{"region": region, "score": fixed2(s.Score)}), true
		}
	}
	return "", false
}
