package geo

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Squareland"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {"name": "Islands"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[20,0],[21,0],[21,1],[20,0]]],
       [[[30,0],[31,0],[31,1],[30,0]]]
     ]}},
    {"type": "Feature", "properties": {"name": "Pin"},
     "geometry": {"type": "Point", "coordinates": [5,5]}}
  ]
}`

func TestParse(t *testing.T) {
	b, err := Parse([]byte(testCollection))
	require.NoError(t, err)
	require.Len(t, b.Countries, 2, "point features are dropped")
	assert.Equal(t, "Squareland", b.Countries[0].Name)
	assert.Len(t, b.Countries[0].Polygons, 1)
	assert.Len(t, b.Countries[1].Polygons, 2)
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse([]byte(`{"type":"FeatureCollection","features":[]}`))
	assert.True(t, errors.Is(err, ErrNoFeatures))

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.geojson")
	require.NoError(t, os.WriteFile(path, []byte(testCollection), 0o644))
	b, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, b.Countries, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}

func TestMercator(t *testing.T) {
	m := Mercator{Scale: 180, TranslateX: 500, TranslateY: 300}

	x, y := m.Project(0, 0)
	assert.InDelta(t, 500, x, 1e-9)
	assert.InDelta(t, 300, y, 1e-9)

	x, _ = m.Project(180, 0)
	assert.InDelta(t, 500+180*math.Pi, x, 1e-9)

	// north is up
	_, yn := m.Project(0, 45)
	assert.Less(t, yn, 300.0)
	assert.InDelta(t, 300-180*math.Log(math.Tan(math.Pi/4+math.Pi/8)), yn, 1e-9)

	// poles clamp instead of diverging
	_, ypole := m.Project(0, 90)
	assert.False(t, math.IsInf(ypole, 0))
	assert.InDelta(t, 300-180*math.Pi, ypole, 1e-6)
}

func TestPath(t *testing.T) {
	m := Mercator{Scale: 180, TranslateX: 500, TranslateY: 300}
	b, err := Parse([]byte(testCollection))
	require.NoError(t, err)

	d := m.Path(b.Countries[0].Polygons)
	assert.True(t, strings.HasPrefix(d, "M500,300L"))
	assert.Equal(t, 1, strings.Count(d, "M"))
	assert.True(t, strings.HasSuffix(d, "Z"))

	assert.Equal(t, 2, strings.Count(m.Path(b.Countries[1].Polygons), "Z"))
	assert.Empty(t, m.Path(nil))
}
