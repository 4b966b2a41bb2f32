package views

import (
	"strings"

	"go.uber.org/zap"

	"worldstats/internal/cache"
	"worldstats/internal/models"
	"worldstats/internal/scale"
	"worldstats/internal/state"
	"worldstats/internal/svg"
)

const (
	pcpWidth   = 960
	pcpHeight  = 500
	pcpOpacity = "0.7"

	pcpTooltip = "Country: {country}"
)

var pcpMargins = Margins{Top: 50, Right: 20, Bottom: 50, Left: 50}

// PCPLine is one drawn row. Segments are the runs of consecutive defined
// values; a missing value breaks the polyline.
type PCPLine struct {
	Country  string
	Region   string
	Color    string
	Segments [][][2]float64
}

type PCPLayout struct {
	Dimensions []string
	X          scale.Point
	Y          map[string]scale.Linear
	Lines      []PCPLine
	Message    string
}

// PCPView draws one polyline per country across the indicator axes.
type PCPView struct {
	cache *cache.Cache
	log   *zap.Logger
}

func NewPCPView(c *cache.Cache, log *zap.Logger) *PCPView {
	if log == nil {
		log = zap.NewNop()
	}
	return &PCPView{cache: c, log: log}
}

func (p *PCPView) Name() string { return "pcp" }

func (p *PCPView) Deps() state.Field {
	return state.ActiveRegions | state.HighlightedCountries | state.PCPData
}

func (p *PCPView) Size() (int, int) { return pcpWidth, pcpHeight }

// filterLines applies the filter precedence: a non-empty highlight keeps
// only highlighted countries, otherwise a non-empty region set keeps only
// its regions, otherwise every line stays. The two are never combined.
func filterLines(lines []models.PCPLine, snap state.Snapshot) []models.PCPLine {
	var keep func(models.PCPLine) bool
	switch {
	case snap.HighlightedCountries.Len() > 0:
		keep = func(l models.PCPLine) bool { return snap.HighlightedCountries.Has(l.Country) }
	case snap.ActiveRegions.Len() > 0:
		keep = func(l models.PCPLine) bool { return snap.ActiveRegions.Has(l.Region) }
	default:
		return lines
	}
	out := make([]models.PCPLine, 0, len(lines))
	for _, l := range lines {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// Layout fits one niced scale per dimension over every decodable row,
// then positions the rows that pass the filter.
func (p *PCPView) Layout(snap state.Snapshot) PCPLayout {
	slot := &p.cache.PCP
	width := pcpWidth - pcpMargins.Left - pcpMargins.Right
	height := pcpHeight - pcpMargins.Top - pcpMargins.Bottom
	dims := models.PCPDimensions
	l := PCPLayout{
		Dimensions: dims,
		X:          scale.NewPoint(dims, 0, width),
		Y:          make(map[string]scale.Linear, len(dims)),
	}
	if msg, ok := slotMessage(slot); ok {
		l.Message = msg
		return l
	}

	lines, skipped := slot.Value.Decode(dims)
	for _, err := range skipped {
		p.log.Debug("skipping pcp row", zap.Error(err))
	}
	if len(lines) == 0 {
		l.Message = NoDataText
		return l
	}

	regions := state.Names{}
	for i, dim := range dims {
		col := make([]float64, 0, len(lines))
		for _, ln := range lines {
			if v := ln.Values[i]; v.OK {
				col = append(col, v.V)
			}
		}
		lo, hi, ok := scale.Extent(col)
		if !ok {
			lo, hi = 0, 1
		}
		l.Y[dim] = scale.NewLinear(lo, hi, height, 0).Nice(scale.DefaultTicks)
	}
	for _, ln := range lines {
		regions[ln.Region] = struct{}{}
	}
	colors := scale.NewOrdinal(scale.Category10, regions.Sorted()...)

	for _, ln := range filterLines(lines, snap) {
		out := PCPLine{Country: ln.Country, Region: ln.Region, Color: colors.Color(ln.Region)}
		var seg [][2]float64
		for i, dim := range dims {
			v := ln.Values[i]
			if !v.OK {
				if len(seg) > 0 {
					out.Segments = append(out.Segments, seg)
					seg = nil
				}
				continue
			}
			x, _ := l.X.Map(dim)
			seg = append(seg, [2]float64{x, l.Y[dim].Map(v.V)})
		}
		if len(seg) > 0 {
			out.Segments = append(out.Segments, seg)
		}
		l.Lines = append(l.Lines, out)
	}
	return l
}

// pathData joins segments into one path, each segment its own subpath.
func pathData(segments [][][2]float64) string {
	var sb strings.Builder
	for _, seg := range segments {
		for i, pt := range seg {
			if i == 0 {
				sb.WriteString("M")
			} else {
				sb.WriteString("L")
			}
			sb.WriteString(svg.F(pt[0]))
			sb.WriteString(",")
			sb.WriteString(svg.F(pt[1]))
		}
	}
	return sb.String()
}

// axisLabel shortens long dimension names.
func axisLabel(dim string) string {
	if r := []rune(dim); len(r) > 14 {
		return string(r[:11]) + "..."
	}
	return dim
}

func (p *PCPView) Render(snap state.Snapshot) *svg.Node {
	const title = "Parallel Coordinates Plot for Various Indicators by Region"
	l := p.Layout(snap)
	if l.Message != "" {
		return placeholder(pcpWidth, pcpHeight, title, l.Message)
	}

	doc := svg.Document(pcpWidth, pcpHeight)
	origin := "translate(" + svg.F(pcpMargins.Left) + "," + svg.F(pcpMargins.Top) + ")"
	lines := svg.El("g", "class", "lines", "transform", origin)
	for _, ln := range l.Lines {
		lines.Add(svg.El("path", "class", "line", "data-name", ln.Country, "d", pathData(ln.Segments),
			"fill", "none", "stroke", ln.Color, "opacity", pcpOpacity))
	}
	doc.Add(lines)

	for _, dim := range l.X.Names() {
		x, _ := l.X.Map(dim)
		axis := svg.El("g", "class", "dimension",
			"transform", "translate("+svg.F(pcpMargins.Left+x)+","+svg.F(pcpMargins.Top)+")")
		axis.Add(axisLeft(l.Y[dim], 0))
		axis.Add(svg.Text(0, -9, axisLabel(dim), "text-anchor", "middle", "font-size", "12"))
		doc.Add(axis)
	}

	doc.Add(svg.Text(float64(pcpWidth-pcpMargins.Left-pcpMargins.Right)/2+pcpMargins.Left, pcpMargins.Top/2, title,
		"class", "title", "text-anchor", "middle", "font-size", "16", "text-decoration", "underline"))
	return doc
}

// Tooltip names the country of a drawn line.
func (p *PCPView) Tooltip(snap state.Snapshot, name string) (string, bool) {
	for _, ln := range p.Layout(snap).Lines {
		if ln.Country == name {
			return tooltip(pcpTooltip, map[string]any{"country": name}), true
		}
	}
	return "", false
}
