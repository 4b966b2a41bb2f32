// Package geo loads world boundary polygons and projects them onto the
// map surface.
package geo

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	geojson "github.com/paulmach/go.geojson"

	"worldstats/internal/svg"
)

// NameProperty is the feature property holding the country name.
const NameProperty = "name"

// ErrNoFeatures is returned for a collection without any usable polygon.
var ErrNoFeatures = errors.New("no polygon features")

// Country is one named boundary. Polygons follow GeoJSON layout: a list of
// polygons, each a list of rings, each a list of [lon, lat] positions.
type Country struct {
	Name     string
	Polygons [][][][]float64
}

// Boundaries is the read-only set of countries drawn by the map.
type Boundaries struct {
	Countries []Country
}

// Load reads a GeoJSON feature collection from path.
func Load(path string) (*Boundaries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries: %w", err)
	}
	return Parse(raw)
}

// Parse keeps every Polygon and MultiPolygon feature. Features of other
// geometry types are ignored.
func Parse(raw []byte) (*Boundaries, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("parse boundaries: %w", err)
	}
	b := &Boundaries{}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		var polys [][][][]float64
		switch {
		case f.Geometry.IsPolygon():
			polys = [][][][]float64{f.Geometry.Polygon}
		case f.Geometry.IsMultiPolygon():
			polys = f.Geometry.MultiPolygon
		default:
			continue
		}
		name, _ := f.Properties[NameProperty].(string)
		b.Countries = append(b.Countries, Country{Name: name, Polygons: polys})
	}
	if len(b.Countries) == 0 {
		return nil, ErrNoFeatures
	}
	return b, nil
}

// maxLat is where the Mercator square ends.
var maxLat = 2*math.Atan(math.Exp(math.Pi)) - math.Pi/2

// Mercator is a spherical Mercator projection with a scale in pixels per
// radian and a pixel translation of the (0, 0) point.
type Mercator struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Project maps a longitude/latitude pair in degrees to surface pixels.
func (m Mercator) Project(lon, lat float64) (x, y float64) {
	lambda := lon * math.Pi / 180
	phi := math.Max(-maxLat, math.Min(maxLat, lat*math.Pi/180))
	x = m.Scale*lambda + m.TranslateX
	y = -m.Scale*math.Log(math.Tan(math.Pi/4+phi/2)) + m.TranslateY
	return x, y
}

// Path renders the polygons as an SVG path, one closed subpath per ring.
func (m Mercator) Path(polys [][][][]float64) string {
	var sb strings.Builder
	for _, poly := range polys {
		for _, ring := range poly {
			n := 0
			for _, pos := range ring {
				if len(pos) < 2 {
					continue
				}
				x, y := m.Project(pos[0], pos[1])
				if n == 0 {
					sb.WriteString("M")
				} else {
					sb.WriteString("L")
				}
				sb.WriteString(svg.F(x))
				sb.WriteString(",")
				sb.WriteString(svg.F(y))
				n++
			}
			if n > 0 {
				sb.WriteString("Z")
			}
		}
	}
	return sb.String()
}
