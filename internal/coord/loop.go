// Package coord implements the coordination loop: the single logical
// thread on which a session's state is read and written, and the
// subscription table that decides which views recompute after a change.
package coord

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"worldstats/internal/state"
)

// maxRounds bounds cascading notifications (a subscriber whose reaction
// dirties another field triggers another round).
const maxRounds = 16

// Notify is called with the post-event snapshot and the subset of the
// subscriber's dependencies that changed.
type Notify func(snap state.Snapshot, changed state.Field)

type subscriber struct {
	name string
	deps state.Field
	fn   Notify
}

// Loop serializes every event of one session.
type Loop struct {
	store   *state.Store
	log     *zap.Logger
	events  chan func()
	subs    []subscriber
	pending state.Field
}

func New(store *state.Store, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		store:  store,
		log:    log,
		events: make(chan func(), 256),
	}
}

// Store returns the session's store. Loop thread only.
func (l *Loop) Store() *state.Store { return l.store }

// Subscribe registers fn for changes to any field in deps. Subscribers
// are notified in registration order.
func (l *Loop) Subscribe(name string, deps state.Field, fn Notify) {
	l.subs = append(l.subs, subscriber{name: name, deps: deps, fn: fn})
}

// Mark flags fields that changed outside the store, such as a dataset
// slot being refilled. Loop thread only.
func (l *Loop) Mark(f state.Field) {
	l.pending |= f
}

// Dispatch runs ev on the calling goroutine, then notifies every
// subscriber whose dependencies intersect what ev changed. Reactions that
// change more state are flushed in further rounds.
func (l *Loop) Dispatch(ev func()) {
	if ev != nil {
		l.guard("event", ev)
	}
	for round := 0; ; round++ {
		dirty := l.store.TakeDirty() | l.pending
		l.pending = 0
		if dirty == 0 {
			return
		}
		if round == maxRounds {
			l.log.Error("notification cascade did not settle", zap.Stringer("dirty", dirty))
			return
		}
		snap := l.store.Snapshot()
		for _, s := range l.subs {
			if changed := s.deps & dirty; changed != 0 {
				l.guard(s.name, func() { s.fn(snap, changed) })
			}
		}
	}
}

// guard keeps a failing event or subscriber from halting the loop.
func (l *Loop) guard(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop callback panicked", zap.String("name", name), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// Post queues ev for the loop. Safe from any goroutine.
func (l *Loop) Post(ev func()) {
	l.events <- ev
}

// Do posts ev and waits until the loop has run it and flushed the
// resulting notifications. It must not be called from the loop itself.
func (l *Loop) Do(ctx context.Context, ev func()) error {
	done := make(chan struct{})
	// Events run in FIFO order, so the closer only runs once ev and its
	// notifications are through.
	for _, e := range []func(){ev, func() { close(done) }} {
		select {
		case l.events <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes posted events until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			l.Dispatch(ev)
		}
	}
}

// Drain dispatches every queued event without blocking and returns how
// many ran. It is meant for callers that drive the loop by hand.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case ev := <-l.events:
			l.Dispatch(ev)
			n++
		default:
			return n
		}
	}
}
