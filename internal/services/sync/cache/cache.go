// Package cache is the keyed query cache: TTL staleness, request coalescing,
// stale-while-revalidate, and reference-counted retention
//
// Correctness is scoped to one running process. Entries are owned by the
// cache; slice values are snapshotted into each View, anything referenced
// through them must still not be mutated
package cache

import (
	"context"
	"reflect"
	"sync"
	"time"

	"crewdesk/internal/core/querykey"
	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/platform/logger"
)

// State is the lifecycle state of one entry
type State int

// Entry states
const (
	StateFresh State = iota
	StateStale
	StateFetching
	StateError
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateFetching:
		return "fetching"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Fetcher loads the authoritative value for a key
type Fetcher func(ctx context.Context) (any, error)

// Options tune one Get call
type Options struct {
	// TTL overrides the cache default when > 0
	TTL time.Duration

	// StaleWhileRevalidate returns expired data immediately and refreshes
	// in the background instead of blocking the caller
	StaleWhileRevalidate bool
}

// View is a read-only snapshot of one entry
// Err carries the last fetch failure; Data still holds the last good value
// when one exists
type View struct {
	Key       querykey.Key
	Data      any
	HasData   bool
	FetchedAt time.Time
	State     State
	Err       error
}

// Config configures the cache
type Config struct {
	// DefaultTTL applies when a Get passes no TTL
	DefaultTTL time.Duration

	// Retention is how long an unreferenced entry survives before Sweep
	// evicts it
	Retention time.Duration
}

const (
	defaultTTL       = 30 * time.Second
	defaultRetention = 5 * time.Minute
)

// flight is one in-progress fetch; concurrent callers share it
type flight struct {
	done  chan struct{}
	data  any
	err   error
	issue uint64
}

type entry struct {
	key       querykey.Key
	data      any
	hasData   bool
	fetchedAt time.Time
	state     State
	err       error

	// fetch is remembered so invalidation of a referenced entry can refresh
	// without waiting for the next Get
	fetch Fetcher

	// issue stamps fetches so a slow response never overwrites a fresher one
	issue    uint64
	inflight *flight

	refs        int
	lastRelease time.Time
}

// Cache is the process-scoped query cache
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	ttl       time.Duration
	retention time.Duration

	log logger.Logger
	now func() time.Time
}

// New constructs an empty cache
func New(cfg Config) *Cache {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaultTTL
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	return &Cache{
		entries:   make(map[string]*entry),
		ttl:       cfg.DefaultTTL,
		retention: cfg.Retention,
		log:       *logger.Named("querycache"),
		now:       time.Now,
	}
}

// Get returns the cached value for key, fetching when needed
//
// Behavior by entry state:
//   - fresh within TTL: returned as is
//   - expired with StaleWhileRevalidate: returned immediately, refreshed in
//     the background
//   - expired without it, or absent: the caller blocks on the fetch;
//     concurrent callers for the same key join the one in-flight fetch
//
// A failed fetch surfaces its error and leaves the last good data in place;
// the failure is never cached, the next Get retries
func (c *Cache) Get(ctx context.Context, key querykey.Key, fetch Fetcher, opt Options) (View, error) {
	canon := key.Canon()
	ttl := opt.TTL
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	e, ok := c.entries[canon]
	if !ok {
		e = &entry{key: key, state: StateStale}
		c.entries[canon] = e
	}
	e.fetch = fetch

	now := c.now()
	fresh := e.hasData && e.state == StateFresh && now.Sub(e.fetchedAt) < ttl

	if fresh {
		v := c.viewLocked(e)
		c.mu.Unlock()
		hits.Inc()
		return v, nil
	}

	if e.hasData && opt.StaleWhileRevalidate {
		// serve stale now, refresh behind the caller's back
		if e.inflight == nil {
			c.startFetchLocked(e, fetch)
		}
		if e.state != StateFetching {
			e.state = StateStale
		}
		v := c.viewLocked(e)
		c.mu.Unlock()
		staleServes.Inc()
		return v, nil
	}

	// blocking path: join or start the single in-flight fetch
	var fl *flight
	if e.inflight != nil {
		fl = e.inflight
		coalesced.Inc()
	} else {
		fl = c.startFetchLocked(e, fetch)
		misses.Inc()
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		// the fetch keeps running for other callers
		return View{Key: key, State: StateFetching}, ctx.Err()
	case <-fl.done:
	}

	c.mu.Lock()
	v := c.viewLocked(e)
	c.mu.Unlock()
	if fl.err != nil {
		return v, fl.err
	}
	if !v.HasData {
		// our fetch was superseded by an invalidation while we waited; hand
		// back what it returned, marked stale
		v.Data, v.HasData, v.State = fl.data, true, StateStale
	}
	return v, nil
}

// startFetchLocked launches one fetch goroutine for e; caller holds c.mu
func (c *Cache) startFetchLocked(e *entry, fetch Fetcher) *flight {
	e.issue++
	fl := &flight{done: make(chan struct{}), issue: e.issue}
	e.inflight = fl
	e.state = StateFetching

	go func() {
		data, err := fetch(context.Background())
		fl.data, fl.err = data, err

		c.mu.Lock()
		// last issued wins: a completion for a superseded fetch is discarded
		if fl.issue == e.issue {
			if e.inflight == fl {
				e.inflight = nil
			}
			if err != nil {
				e.state = StateError
				e.err = perr.WrapIf(err, perr.ErrorCodeTransport, "fetch failed")
				fetchErrors.Inc()
				c.log.Warn().Err(err).Str("key", e.key.Canon()).Msg("query fetch failed")
			} else {
				e.data = data
				e.hasData = true
				e.fetchedAt = c.now()
				e.state = StateFresh
				e.err = nil
			}
		} else if e.inflight == fl {
			e.inflight = nil
		}
		c.mu.Unlock()
		close(fl.done)
	}()
	return fl
}

func (c *Cache) viewLocked(e *entry) View {
	return View{
		Key:       e.key,
		Data:      snapshotData(e.data),
		HasData:   e.hasData,
		FetchedAt: e.fetchedAt,
		State:     e.state,
		Err:       e.err,
	}
}

// snapshotData shallow-copies slice values so writes through a returned View
// land in the copy, not in the cached backing array. Non-slice values pass
// through; nested reference types stay on the must-not-mutate convention
func snapshotData(v any) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice || rv.IsNil() {
		return v
	}
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	return out.Interface()
}

// Invalidate marks the entry for key stale. A referenced entry refreshes
// immediately in the background; an unreferenced one refreshes lazily on its
// next Get
func (c *Cache) Invalidate(key querykey.Key) {
	c.invalidateCanon(key.Canon())
}

// InvalidatePrefix invalidates every entry whose canonical key starts with
// prefix, typically querykey.ResourcePrefix of a mutated table
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	var canons []string
	for canon := range c.entries {
		if querykey.HasPrefix(canon, prefix) {
			canons = append(canons, canon)
		}
	}
	c.mu.Unlock()
	for _, canon := range canons {
		c.invalidateCanon(canon)
	}
}

// InvalidateAll marks every entry stale, the forced-refetch path after a
// feed reconnect
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	canons := make([]string, 0, len(c.entries))
	for canon := range c.entries {
		canons = append(canons, canon)
	}
	c.mu.Unlock()
	for _, canon := range canons {
		c.invalidateCanon(canon)
	}
}

func (c *Cache) invalidateCanon(canon string) {
	c.mu.Lock()
	e, ok := c.entries[canon]
	if !ok {
		c.mu.Unlock()
		return
	}
	invalidations.Inc()
	// detach any in-flight fetch: it was issued before the invalidation and
	// its response must not be cached as current
	if e.inflight != nil {
		e.issue++
		e.inflight = nil
	}
	e.state = StateStale
	// expire regardless of TTL
	e.fetchedAt = time.Time{}
	if e.refs > 0 && e.fetch != nil {
		c.startFetchLocked(e, e.fetch)
	}
	c.mu.Unlock()
}

// Retain takes a reference on key's entry, keeping it alive across Sweep
func (c *Cache) Retain(key querykey.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	canon := key.Canon()
	e, ok := c.entries[canon]
	if !ok {
		e = &entry{key: key, state: StateStale}
		c.entries[canon] = e
	}
	e.refs++
}

// Release drops a reference taken with Retain; in-flight fetches are never
// cancelled, other callers may still join them
func (c *Cache) Release(key querykey.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Canon()]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 {
		e.lastRelease = c.now()
	}
}

// Sweep evicts unreferenced entries idle past the retention window and
// returns how many were dropped
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for canon, e := range c.entries {
		if e.refs > 0 || e.inflight != nil {
			continue
		}
		idle := e.lastRelease
		if idle.IsZero() {
			idle = e.fetchedAt
		}
		if now.Sub(idle) >= c.retention {
			delete(c.entries, canon)
			n++
		}
	}
	evictions.Add(float64(n))
	return n
}

// Clear drops everything, the sign-out path
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Len reports how many entries are cached
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
