package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldstats/internal/engine"
	"worldstats/internal/models"
)

const testCSV = `Country name,Region,Income Category,Ladder score,GDP per capita,Total tax rate
CountryA,Europe,High income,5,1.5,38.3%
CountryB,Asia,Low income,7,2.5,
CountryC,Europe,High income,3,,41%
`

func newTestServer(t *testing.T, loaded bool) *httptest.Server {
	t.Helper()
	h := NewHandler(nil)
	if loaded {
		store, err := engine.ReadColumnar(strings.NewReader(testCSV))
		require.NoError(t, err)
		h.SetData(store.Aggregate())
	}
	e := NewEcho(0)
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestColumns(t *testing.T) {
	srv := newTestServer(t, true)
	resp, body := get(t, srv.URL+"/columns")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cols []string
	require.NoError(t, json.Unmarshal(body, &cols))
	assert.Equal(t, []string{"Ladder score", "GDP per capita", "Total tax rate"}, cols)
}

func TestGetDataDefaultsAndUnknownColumn(t *testing.T) {
	srv := newTestServer(t, true)

	resp, body := get(t, srv.URL+"/getdata")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []models.Row
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "CountryA", rows[0].Country)
	assert.Equal(t, models.Num(1.5), rows[0].Get(models.DefaultColumn))
	assert.False(t, rows[2].Get(models.DefaultColumn).OK)

	resp, body = get(t, srv.URL+"/getdata?column=Nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"error":"Column not found"`)
}

func TestScatterDropsMissing(t *testing.T) {
	srv := newTestServer(t, true)
	_, body := get(t, srv.URL+"/scatter_data?column=GDP%20per%20capita")

	p := models.ScatterPayload{Column: "GDP per capita"}
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, []string{"CountryA", "CountryB"}, p.Countries)
	assert.Len(t, p.Points(), 2)
}

func TestPieAndPCP(t *testing.T) {
	srv := newTestServer(t, true)

	_, body := get(t, srv.URL+"/pie-chart")
	var pie []models.PieSlice
	require.NoError(t, json.Unmarshal(body, &pie))
	assert.Equal(t, []models.PieSlice{{Region: "Asia", Score: 7}, {Region: "Europe", Score: 4}}, pie)

	_, body = get(t, srv.URL+"/pcp")
	var pcp models.PCPPayload
	require.NoError(t, json.Unmarshal(body, &pcp))
	lines, skipped := pcp.Decode(models.PCPDimensions)
	assert.Empty(t, skipped)
	require.Len(t, lines, 3)
	assert.Equal(t, "CountryC", lines[2].Country)
	assert.Equal(t, "Europe", lines[2].Region)
}

func TestCountryInfo(t *testing.T) {
	srv := newTestServer(t, true)

	resp, body := get(t, srv.URL+"/country-info?countries=countrya,%20CountryC")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info models.RadarPayload
	require.NoError(t, json.Unmarshal(body, &info))
	require.Contains(t, info, "CountryA")
	assert.Equal(t, 38.3, info["CountryA"]["Total tax rate"].V)
	assert.Equal(t, 41.0, info["CountryC"]["Total tax rate"].V)
	assert.False(t, info["CountryC"]["GDP per capita"].OK)

	resp, body = get(t, srv.URL+"/country-info?countries=CountryA,Atlantis")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid countries: atlantis")
}

func TestETagNotModified(t *testing.T) {
	srv := newTestServer(t, true)
	resp, _ := get(t, srv.URL+"/pie-chart")
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	resp, body := get(t, srv.URL+"/pie-chart", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)
}

func TestLoadingReturns503(t *testing.T) {
	srv := newTestServer(t, false)
	resp, _ := get(t, srv.URL+"/columns")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
