// Package mutate applies record writes against the backend and keeps the
// query cache coherent with them
package mutate

import (
	"context"
	"sync"

	"crewdesk/internal/adapters/backend"
	"crewdesk/internal/core/querykey"
	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/platform/logger"
	"crewdesk/internal/services/sync/cache"
)

// Deps maps a mutated table to the cache resources it invalidates
// Every table invalidates at least itself; the timeline resource rides along
// because any record write produces a new audit row
type Deps map[string][]string

// DefaultDeps covers the standard record tables
func DefaultDeps() Deps {
	d := make(Deps)
	for _, t := range backend.Tables() {
		d[t] = []string{t, "timeline"}
	}
	// assignment rows render user and customer names, keep those fresh too
	d["assignments"] = append(d["assignments"], "users", "customers")
	return d
}

// Coordinator serializes writes per record and invalidates dependents
//
// Conflict policy: a second mutation on a record id that already has one in
// flight fails fast with a conflict error rather than queueing. Callers see
// the conflict immediately and decide whether to retry
type Coordinator struct {
	backend backend.Client
	cache   *cache.Cache
	deps    Deps
	log     logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New constructs a Coordinator; nil deps means DefaultDeps
func New(b backend.Client, c *cache.Cache, deps Deps) *Coordinator {
	if deps == nil {
		deps = DefaultDeps()
	}
	return &Coordinator{
		backend:  b,
		cache:    c,
		deps:     deps,
		log:      *logger.Named("mutate"),
		inflight: make(map[string]struct{}),
	}
}

// Create inserts a new record. Creates never conflict: the id does not exist
// until the backend commits it
func (m *Coordinator) Create(ctx context.Context, table string, fields map[string]any, actorID string) (backend.Record, error) {
	rec, err := m.backend.Insert(ctx, table, fields, actorID)
	if err != nil {
		return backend.Record{}, err
	}
	m.invalidate(table)
	return rec, nil
}

// Update patches one record. By the time Update returns, every dependent
// cache key is invalidated, so a Get issued afterwards sees the write
func (m *Coordinator) Update(ctx context.Context, table, id string, fields map[string]any, actorID string) (backend.Record, error) {
	release, err := m.acquire(table, id)
	if err != nil {
		return backend.Record{}, err
	}
	defer release()

	rec, err := m.backend.Update(ctx, table, id, fields, actorID)
	if err != nil {
		// the cache still holds the pre-mutation truth, leave it alone
		return backend.Record{}, err
	}
	m.invalidate(table)
	return rec, nil
}

// Delete removes one record
func (m *Coordinator) Delete(ctx context.Context, table, id, actorID string) error {
	release, err := m.acquire(table, id)
	if err != nil {
		return err
	}
	defer release()

	if err := m.backend.Delete(ctx, table, id, actorID); err != nil {
		return err
	}
	m.invalidate(table)
	return nil
}

// acquire claims the per-record slot or reports a conflict
func (m *Coordinator) acquire(table, id string) (func(), error) {
	key := table + "/" + id
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[key]; busy {
		return nil, perr.Conflictf("mutation already in flight for %s", key)
	}
	m.inflight[key] = struct{}{}
	return func() {
		m.mu.Lock()
		delete(m.inflight, key)
		m.mu.Unlock()
	}, nil
}

// invalidate marks every resource dependent on table stale
// Runs synchronously so invalidation is visible before the mutation returns
func (m *Coordinator) invalidate(table string) {
	resources, ok := m.deps[table]
	if !ok {
		resources = []string{table, "timeline"}
	}
	for _, res := range resources {
		m.cache.InvalidatePrefix(querykey.ResourcePrefix(res))
	}
	m.log.Debug().Str("table", table).Strs("resources", resources).Msg("invalidated dependents")
}
