// Package cache owns the datasets the views draw from. Fetches run on
// their own goroutines and hand results back to the coordination loop, so
// slots are only ever read or written on the loop.
package cache

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"worldstats/internal/coord"
	"worldstats/internal/models"
	"worldstats/internal/state"
)

// Fetcher is the part of the backend client the cache uses.
type Fetcher interface {
	Rows(ctx context.Context, column string) ([]models.Row, error)
	Scatter(ctx context.Context, column string) (models.ScatterPayload, error)
	Pie(ctx context.Context) ([]models.PieSlice, error)
	PCP(ctx context.Context) (models.PCPPayload, error)
	CountryInfo(ctx context.Context, countries []string) (models.RadarPayload, error)
}

// Slot is one cached dataset.
type Slot[T any] struct {
	Value T
	// Key is what Value was fetched for: a column or a country list.
	Key string
	// Loaded is false until the first successful fetch.
	Loaded  bool
	Loading bool
	// Err is the last fetch failure, cleared by the next success.
	Err error

	issued uint64
}

// Failed reports whether the slot has an error and nothing to show.
func (s *Slot[T]) Failed() bool { return s.Err != nil && !s.Loaded }

type Options struct {
	// Sequenced drops responses older than the newest request of a slot.
	// When false the last response to arrive wins.
	Sequenced bool
	// Go starts a fetch. Defaults to a new goroutine.
	Go func(func())
	Log *zap.Logger
}

// Cache is the dataset cache of one session.
type Cache struct {
	loop  *coord.Loop
	fetch Fetcher
	ctx   context.Context
	opts  Options
	log   *zap.Logger

	Map     Slot[[]models.Row]
	Scatter Slot[models.ScatterPayload]
	Pie     Slot[[]models.PieSlice]
	PCP     Slot[models.PCPPayload]
	Radar   Slot[models.RadarPayload]
}

// New returns an empty cache. ctx bounds every fetch it starts.
func New(ctx context.Context, loop *coord.Loop, fetch Fetcher, opts Options) *Cache {
	if opts.Go == nil {
		opts.Go = func(f func()) { go f() }
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{loop: loop, fetch: fetch, ctx: ctx, opts: opts, log: log}
}

type result[T any] struct {
	v   T
	err error
}

// begin marks a slot as loading and returns its request number.
func begin[T any](c *Cache, s *Slot[T], f state.Field) uint64 {
	s.issued++
	s.Loading = true
	c.loop.Mark(f)
	return s.issued
}

// apply stores a response. keepStale keeps the previous value on failure.
func apply[T any](c *Cache, name string, s *Slot[T], f state.Field, seq uint64, key string, r result[T], keepStale bool) {
	latest := seq == s.issued
	if !latest && c.opts.Sequenced {
		c.log.Debug("discarding superseded response", zap.String("slot", name), zap.String("key", key))
		return
	}
	if latest {
		s.Loading = false
	}
	if r.err != nil {
		c.log.Warn("fetch failed", zap.String("slot", name), zap.String("key", key), zap.Error(r.err))
		s.Err = r.err
		if !keepStale {
			var zero T
			s.Value, s.Loaded, s.Key = zero, false, ""
		}
	} else {
		s.Value, s.Loaded, s.Key, s.Err = r.v, true, key, nil
	}
	c.loop.Mark(f)
}

// Load refetches the map rows and the scatter arrays for column. Both
// requests run concurrently. Loop thread only.
func (c *Cache) Load(column string) {
	mapSeq := begin(c, &c.Map, state.MapData)
	scatterSeq := begin(c, &c.Scatter, state.ScatterData)
	c.opts.Go(func() {
		var rows result[[]models.Row]
		var sc result[models.ScatterPayload]
		var g errgroup.Group
		g.Go(func() error {
			rows.v, rows.err = c.fetch.Rows(c.ctx, column)
			return nil
		})
		g.Go(func() error {
			sc.v, sc.err = c.fetch.Scatter(c.ctx, column)
			return nil
		})
		_ = g.Wait()
		c.loop.Post(func() {
			apply(c, "map", &c.Map, state.MapData, mapSeq, column, rows, true)
			apply(c, "scatter", &c.Scatter, state.ScatterData, scatterSeq, column, sc, true)
		})
	})
}

// LoadStatic fetches the pie aggregate and the parallel-coordinates
// payload. Loop thread only.
func (c *Cache) LoadStatic() {
	pieSeq := begin(c, &c.Pie, state.PieData)
	pcpSeq := begin(c, &c.PCP, state.PCPData)
	c.opts.Go(func() {
		var pie result[[]models.PieSlice]
		var pcp result[models.PCPPayload]
		var g errgroup.Group
		g.Go(func() error {
			pie.v, pie.err = c.fetch.Pie(c.ctx)
			return nil
		})
		g.Go(func() error {
			pcp.v, pcp.err = c.fetch.PCP(c.ctx)
			return nil
		})
		_ = g.Wait()
		c.loop.Post(func() {
			apply(c, "pie", &c.Pie, state.PieData, pieSeq, "", pie, true)
			apply(c, "pcp", &c.PCP, state.PCPData, pcpSeq, "", pcp, true)
		})
	})
}

// LoadRadar fetches the metrics of the clicked countries. An empty set
// resets the slot without a request; a failure leaves no stale value
// behind. Loop thread only.
func (c *Cache) LoadRadar(countries state.Names) {
	if countries.Len() == 0 {
		c.Radar.issued++
		c.Radar = Slot[models.RadarPayload]{issued: c.Radar.issued}
		c.loop.Mark(state.RadarData)
		return
	}
	names := countries.Sorted()
	key := strings.Join(names, ",")
	seq := begin(c, &c.Radar, state.RadarData)
	c.opts.Go(func() {
		var r result[models.RadarPayload]
		r.v, r.err = c.fetch.CountryInfo(c.ctx, names)
		c.loop.Post(func() {
			apply(c, "radar", &c.Radar, state.RadarData, seq, key, r, false)
		})
	})
}
