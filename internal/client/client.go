// Package client talks to the data backend. Every response is checked
// against its payload schema and decoded into typed models before it
// reaches the dataset cache.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"worldstats/internal/models"
)

// ErrFetch matches every network, status and payload failure.
var ErrFetch = errors.New("fetch failed")

// FetchError describes one failed request. Status is 0 when no response
// was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

type cached struct {
	etag string
	body []byte
}

// Client is safe for concurrent use.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger

	mu    sync.Mutex
	etags map[string]cached

	group singleflight.Group
}

// New returns a client for the backend at baseURL. A nil hc means
// http.DefaultClient.
func New(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		http:  hc,
		log:   log,
		etags: make(map[string]cached),
	}
}

// Columns lists the indicator columns. Concurrent callers share one request.
func (c *Client) Columns(ctx context.Context) ([]string, error) {
	v, err, _ := c.group.Do("columns", func() (any, error) {
		var cols []string
		err := c.getJSON(ctx, "/columns", nil, columnsPayload, &cols)
		return cols, err
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

// Rows fetches the map dataset for column.
func (c *Client) Rows(ctx context.Context, column string) ([]models.Row, error) {
	var rows []models.Row
	err := c.getJSON(ctx, "/getdata", url.Values{"column": {column}}, rowsPayload, &rows)
	return rows, err
}

// Scatter fetches the paired score and value arrays for column.
func (c *Client) Scatter(ctx context.Context, column string) (models.ScatterPayload, error) {
	p := models.ScatterPayload{Column: column}
	err := c.getJSON(ctx, "/scatter_data", url.Values{"column": {column}}, scatterPayload, &p)
	p.Column = column
	return p, err
}

// Pie fetches the per-region mean scores.
func (c *Client) Pie(ctx context.Context) ([]models.PieSlice, error) {
	var slices []models.PieSlice
	err := c.getJSON(ctx, "/pie-chart", nil, piePayload, &slices)
	return slices, err
}

// PCP fetches the encoded parallel-coordinates rows and their decode tables.
func (c *Client) PCP(ctx context.Context) (models.PCPPayload, error) {
	var p models.PCPPayload
	err := c.getJSON(ctx, "/pcp", nil, pcpPayload, &p)
	return p, err
}

// CountryInfo fetches the full records of the named countries.
func (c *Client) CountryInfo(ctx context.Context, countries []string) (models.RadarPayload, error) {
	var p models.RadarPayload
	q := url.Values{"countries": {strings.Join(countries, ",")}}
	err := c.getJSON(ctx, "/country-info", q, radarPayload, &p)
	return p, err
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, schema *gojsonschema.Schema, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	body, status, err := c.get(ctx, u)
	if err != nil {
		return &FetchError{URL: u, Status: status, Err: err}
	}
	if err := validate(schema, body); err != nil {
		return &FetchError{URL: u, Status: status, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{URL: u, Status: status, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	return nil
}

// get performs a conditional GET. A 304 answers with the body remembered
// for the same URL.
func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	c.mu.Lock()
	prev, seen := c.etags[u]
	c.mu.Unlock()
	if seen {
		req.Header.Set("If-None-Match", prev.etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && seen {
		c.log.Debug("not modified", zap.String("url", u))
		return prev.body, resp.StatusCode, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, errors.New(errorMessage(resp.StatusCode, body))
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		c.mu.Lock()
		c.etags[u] = cached{etag: etag, body: body}
		c.mu.Unlock()
	}
	return body, resp.StatusCode, nil
}

// errorMessage extracts the backend's {"error": ...} text.
func errorMessage(status int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return http.StatusText(status)
}
