// Package service aggregates change-log sources into cached activity feeds
package service

import (
	"context"
	"strconv"
	"time"

	"crewdesk/internal/core/querykey"
	"crewdesk/internal/core/timeline"
	"crewdesk/internal/modkit/repokit"
	"crewdesk/internal/platform/logger"
	syncsvc "crewdesk/internal/services/sync"
	"crewdesk/internal/services/sync/cache"
	"crewdesk/internal/services/timeline/domain"
	"crewdesk/internal/services/timeline/repo"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Service defines the timeline service contract
type Service interface {
	domain.ServicePort
}

const (
	defaultLimit = 50
	memoSize     = 4096

	// memoTTL bounds how long a resolved actor name can lag a rename
	memoTTL = time.Hour
)

type memoized struct {
	ev       timeline.Event
	fallback bool
}

// Svc implements the timeline service
// Reads go through the sync engine's query cache under the "timeline"
// resource, so record mutations and feed events invalidate them
type Svc struct {
	Repo    repo.Storage
	archive repo.Storage
	eng     *syncsvc.Engine

	// memo caches normalized events by change id; audit rows are immutable
	// so re-normalizing the same row on every refresh is pure waste
	memo *expirable.LRU[string, memoized]
	log  logger.Logger
}

// New constructs a timeline service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], archive repo.Storage, eng *syncsvc.Engine) *Svc {
	if db == nil {
		panic("timeline.Service requires a non nil TxRunner")
	}
	if eng == nil {
		panic("timeline.Service requires the sync engine")
	}
	return &Svc{
		Repo:    binder.Bind(db),
		archive: archive,
		eng:     eng,
		memo:    expirable.NewLRU[string, memoized](memoSize, nil, memoTTL),
		log:     *logger.Named("timeline"),
	}
}

// Feed returns the aggregated activity feed for the given filters
func (s *Svc) Feed(ctx context.Context, in domain.FeedInput) (domain.FeedOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	f := repo.Filters{EntityTable: in.EntityTable, EntityID: in.EntityID}

	key := querykey.New("timeline", map[string]string{
		"entity_table": in.EntityTable,
		"entity_id":    in.EntityID,
		"limit":        strconv.Itoa(limit),
	}).WithSort("occurred_at", true)

	if in.Refresh {
		s.eng.Cache.Invalidate(key)
	}

	fetch := func(ctx context.Context) (any, error) { return s.build(ctx, f, limit) }
	v, err := s.eng.Cache.Get(ctx, key, fetch, cache.Options{StaleWhileRevalidate: !in.Refresh})
	if err != nil && !v.HasData {
		return domain.FeedOutput{}, err
	}

	events, _ := v.Data.([]timeline.Event)
	return domain.FeedOutput{
		Events: events,
		Stale:  err != nil || v.State != cache.StateFresh,
	}, nil
}

// build is the cache fetcher: read every source, normalize, merge
// The archive is best effort; a cold ClickHouse degrades the feed to the hot
// change_log instead of failing it
func (s *Svc) build(ctx context.Context, f repo.Filters, limit int) ([]timeline.Event, error) {
	recent, err := s.Repo.RecentChanges(ctx, f, limit)
	if err != nil {
		return nil, err
	}

	var archived []timeline.RawChange
	if s.archive != nil {
		archived, err = s.archive.RecentChanges(ctx, f, limit)
		if err != nil {
			s.log.Warn().Err(err).Msg("archive source unavailable, serving hot log only")
			archived = nil
		}
	}

	// archive first so the hot log wins id collisions
	return timeline.Merge(limit, s.normalize(archived), s.normalize(recent)), nil
}

func (s *Svc) normalize(raw []timeline.RawChange) []timeline.Event {
	if len(raw) == 0 {
		return nil
	}
	out := make([]timeline.Event, 0, len(raw))
	for _, rc := range raw {
		if m, ok := s.memo.Get(rc.ID); ok {
			out = append(out, m.ev)
			continue
		}
		ev, fallback := timeline.Normalize(rc)
		if fallback {
			normalizeFallbacks.Inc()
			s.log.Warn().
				Str("entity_table", rc.EntityType).
				Str("op", string(rc.EventType)).
				Str("change_id", rc.ID).
				Msg("change row normalized via generic fallback")
		}
		s.memo.Add(rc.ID, memoized{ev: ev, fallback: fallback})
		out = append(out, ev)
	}
	return out
}
