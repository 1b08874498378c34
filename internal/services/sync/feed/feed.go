// Package feed fans change events from one backend listener out to table
// subscriptions, reconnecting with backoff when the transport drops
package feed

import (
	"context"
	"math/rand"
	"slices"
	"sync"
	"time"

	"crewdesk/internal/adapters/backend"
	"crewdesk/internal/platform/logger"
)

// Event is one change notification as delivered to handlers
type Event = backend.ChangeEvent

// Handler consumes matched events; it must not block, slow consumers should
// hand off to their own goroutine
type Handler func(Event)

// Matcher filters events within a table subscription; nil matches everything
type Matcher func(Event) bool

const (
	backoffStart   = 250 * time.Millisecond
	backoffCeiling = 15 * time.Second
)

// Subscription is one registered (table, matcher, handler) triple
// Close is idempotent and safe from any goroutine; no events are delivered
// after Close returns. Do not call Close from the subscription's own
// handler, it waits out an in-flight delivery
type Subscription struct {
	id    uint64
	m     *Manager
	close sync.Once
}

// Close releases the subscription
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.close.Do(func() {
		s.m.mu.Lock()
		target := s.m.subs[s.id]
		delete(s.m.subs, s.id)
		s.m.mu.Unlock()
		if target != nil {
			// taking the delivery lock means any handler call that already
			// started has returned, and the closed mark stops later ones
			target.mu.Lock()
			target.closed = true
			target.mu.Unlock()
		}
	})
}

type sub struct {
	table string
	match Matcher
	fn    Handler

	// mu serializes delivery against Close; closed is checked under it
	// right before every handler call
	mu     sync.Mutex
	closed bool
}

// deliver invokes the handler unless the subscription closed since it was
// snapshotted by dispatch
func (s *sub) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(ev)
}

// Manager owns the listener connection and the subscription set
type Manager struct {
	listener backend.Listener
	log      logger.Logger

	mu     sync.Mutex
	subs   map[uint64]*sub
	nextID uint64

	onReconnect []func()

	sleep func(time.Duration)
}

// New constructs a manager around one listener
func New(l backend.Listener) *Manager {
	return &Manager{
		listener: l,
		log:      *logger.Named("feed"),
		subs:     make(map[uint64]*sub),
		sleep:    time.Sleep,
	}
}

// Subscribe registers a handler for changes on table; match narrows the
// events, nil means all of them. The caller owns the returned Subscription
// and must Close it when its scope ends
func (m *Manager) Subscribe(table string, match Matcher, fn Handler) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.subs[m.nextID] = &sub{table: table, match: match, fn: fn}
	return &Subscription{id: m.nextID, m: m}
}

// OnReconnect registers a hook that fires each time the feed comes back
// after a drop. The cache wires its forced refetch here so no silently
// missed event can leave a stale view in place
func (m *Manager) OnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnect = append(m.onReconnect, fn)
}

// Run drives the listen loop until ctx is done. Transport failures are
// retried with jittered exponential backoff and never surface to
// subscribers as anything but a transient stale window
func (m *Manager) Run(ctx context.Context) error {
	backoff := backoffStart
	sessions := 0
	for {
		err := m.listener.Listen(ctx, func() {
			backoff = backoffStart
			sessions++
			if sessions > 1 {
				m.log.Info().Int("session", sessions).Msg("feed reconnected, forcing refetch")
				m.fireReconnect()
			}
		}, m.dispatch)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Warn().Err(err).Dur("backoff", backoff).Msg("feed dropped, reconnecting")
		m.sleep(backoff + time.Duration(rand.Int63n(int64(backoff/4)+1)))
		backoff *= 2
		if backoff > backoffCeiling {
			backoff = backoffCeiling
		}
	}
}

func (m *Manager) fireReconnect() {
	m.mu.Lock()
	hooks := make([]func(), len(m.onReconnect))
	copy(hooks, m.onReconnect)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// dispatch delivers ev to every matching subscription in registration order
func (m *Manager) dispatch(ev Event) {
	m.mu.Lock()
	var targets []*sub
	ids := make([]uint64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s := m.subs[id]
		if s.table != "" && s.table != ev.Table {
			continue
		}
		if s.match != nil && !s.match(ev) {
			continue
		}
		targets = append(targets, s)
	}
	m.mu.Unlock()

	for _, s := range targets {
		s.deliver(ev)
	}
}
