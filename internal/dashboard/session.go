// Package dashboard hosts one interactive session: the selection store,
// its coordination loop, the dataset cache and the five views, plus the
// HTTP surface that serves rendered views and turns requests into gestures.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"

	"worldstats/internal/cache"
	"worldstats/internal/coord"
	"worldstats/internal/geo"
	"worldstats/internal/state"
	"worldstats/internal/svg"
	"worldstats/internal/views"
)

// StreamViews is the event stream that carries the names of re-rendered
// views.
const StreamViews = "views"

// FallbackRegions seed the region filter when the backend cannot list them.
var FallbackRegions = []string{"Africa", "Asia", "Europe", "North America", "Oceania", "South America"}

var (
	ErrUnknownView = errors.New("unknown view")
	ErrNotRendered = errors.New("view not rendered yet")
	ErrNoTooltip   = errors.New("nothing to describe")
	ErrNoColumns   = errors.New("backend lists no indicator columns")
)

// Backend is what a session needs from the data service.
type Backend interface {
	cache.Fetcher
	Columns(ctx context.Context) ([]string, error)
}

type Options struct {
	// Sequenced discards superseded fetch responses.
	Sequenced bool
	Log       *zap.Logger
}

// frame is the latest rendering of a view. Its tree is never mutated
// after it is stored.
type frame struct {
	doc  *svg.Node
	body []byte
	w, h int
}

type Session struct {
	ID uuid.UUID

	log   *zap.Logger
	store *state.Store
	loop  *coord.Loop
	cache *cache.Cache

	mapView *views.MapView
	scatter *views.ScatterView
	pie     *views.PieView
	views   map[string]views.View
	order   []string

	mu     sync.RWMutex
	frames map[string]frame

	events *sse.Server
}

// New discovers the column set and regions, wires every view to the loop
// and starts the initial loads. The loop is not running until Run.
func New(ctx context.Context, b Backend, bounds *geo.Boundaries, opts Options) (*Session, error) {
	id := uuid.New()
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("session", id.String()))

	columns, err := b.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	regions := FallbackRegions
	if pie, err := b.Pie(ctx); err != nil {
		log.Warn("region discovery failed, using defaults", zap.Error(err))
	} else if len(pie) > 0 {
		regions = make([]string, len(pie))
		for i, p := range pie {
			regions[i] = p.Region
		}
	}

	s := &Session{
		ID:     id,
		log:    log,
		store:  state.NewStore(columns, regions),
		frames: make(map[string]frame),
		events: sse.New(),
	}
	s.events.AutoReplay = false
	s.events.CreateStream(StreamViews)

	s.loop = coord.New(s.store, log)
	s.cache = cache.New(ctx, s.loop, b, cache.Options{Sequenced: opts.Sequenced, Log: log})

	s.mapView = views.NewMapView(s.store, s.cache, bounds)
	s.scatter = views.NewScatterView(s.store, s.cache)
	s.pie = views.NewPieView(s.store, s.cache)

	// Fetch reactions come first so views drawn in the same round already
	// see the slot marked as loading.
	s.loop.Subscribe("column-fetch", state.ActiveColumn, func(snap state.Snapshot, _ state.Field) {
		s.cache.Load(snap.ActiveColumn)
	})
	s.loop.Subscribe("radar-fetch", state.ClickedCountries, func(snap state.Snapshot, _ state.Field) {
		s.cache.LoadRadar(snap.ClickedCountries)
	})

	s.views = make(map[string]views.View)
	for _, v := range []views.View{
		s.mapView,
		s.scatter,
		views.NewPCPView(s.cache, log),
		s.pie,
		views.NewRadarView(s.cache),
	} {
		s.views[v.Name()] = v
		s.order = append(s.order, v.Name())
		s.loop.Subscribe(v.Name(), v.Deps(), func(snap state.Snapshot, _ state.Field) {
			s.render(v, snap)
		})
	}

	s.loop.Dispatch(func() {
		s.cache.LoadStatic()
		s.cache.Load(s.store.ActiveColumn())
		s.loop.Mark(state.DataFields)
	})
	log.Info("session started",
		zap.Int("columns", len(columns)),
		zap.Strings("regions", regions),
		zap.String("column", s.store.ActiveColumn()))
	return s, nil
}

// render draws v and publishes its name. Loop thread only.
func (s *Session) render(v views.View, snap state.Snapshot) {
	doc := v.Render(snap)
	w, h := v.Size()
	f := frame{doc: doc, body: doc.Bytes(), w: w, h: h}

	s.mu.Lock()
	s.frames[v.Name()] = f
	s.mu.Unlock()

	s.events.Publish(StreamViews, &sse.Event{Data: []byte(v.Name())})
	s.log.Debug("view rendered", zap.String("view", v.Name()), zap.Int("bytes", len(f.body)))
}

// Run drives the coordination loop until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	return s.loop.Run(ctx)
}

// Close ends every open event stream.
func (s *Session) Close() {
	s.events.Close()
}

// Views lists the view names in drawing order.
func (s *Session) Views() []string {
	return append([]string(nil), s.order...)
}

func (s *Session) latest(name string) (frame, error) {
	if _, ok := s.views[name]; !ok {
		return frame{}, fmt.Errorf("%q: %w", name, ErrUnknownView)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[name]
	if !ok {
		return frame{}, fmt.Errorf("%q: %w", name, ErrNotRendered)
	}
	return f, nil
}

// SVG returns the latest rendering of a view.
func (s *Session) SVG(name string) ([]byte, error) {
	f, err := s.latest(name)
	if err != nil {
		return nil, err
	}
	return f.body, nil
}

// PNG rasterizes the latest rendering of a view.
func (s *Session) PNG(name string) ([]byte, error) {
	f, err := s.latest(name)
	if err != nil {
		return nil, err
	}
	return svg.PNG(f.doc, f.w, f.h)
}

// Columns returns the indicator columns discovered at startup.
func (s *Session) Columns(ctx context.Context) ([]string, error) {
	var cols []string
	err := s.loop.Do(ctx, func() { cols = s.store.Columns() })
	return cols, err
}

// Snapshot reads the selection on the loop.
func (s *Session) Snapshot(ctx context.Context) (state.Snapshot, error) {
	var snap state.Snapshot
	err := s.loop.Do(ctx, func() { snap = s.store.Snapshot() })
	return snap, err
}

// SelectColumn switches the active indicator.
func (s *Session) SelectColumn(ctx context.Context, col string) error {
	var serr error
	if err := s.loop.Do(ctx, func() { serr = s.store.SetActiveColumn(col) }); err != nil {
		return err
	}
	return serr
}

// ClickCountry is a click on a map boundary.
func (s *Session) ClickCountry(ctx context.Context, name string) error {
	return s.loop.Do(ctx, func() { s.mapView.Click(name) })
}

// Brush is a scatter brush in plot-area pixels.
func (s *Session) Brush(ctx context.Context, x0, y0, x1, y1 float64) error {
	return s.loop.Do(ctx, func() { s.scatter.Brush(x0, y0, x1, y1) })
}

// ClickRegion is a click on a pie wedge.
func (s *Session) ClickRegion(ctx context.Context, region string) error {
	return s.loop.Do(ctx, func() { s.pie.Click(region) })
}

// Tooltip describes key in a hoverable view.
func (s *Session) Tooltip(ctx context.Context, view, key string) (string, error) {
	v, ok := s.views[view]
	if !ok {
		return "", fmt.Errorf("%q: %w", view, ErrUnknownView)
	}
	h, ok := v.(views.Hoverable)
	if !ok {
		return "", fmt.Errorf("%q: %w", view, ErrNoTooltip)
	}
	var (
		tip   string
		found bool
	)
	err := s.loop.Do(ctx, func() { tip, found = h.Tooltip(s.store.Snapshot(), key) })
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%s %q: %w", view, key, ErrNoTooltip)
	}
	return tip, nil
}
