// Package sync wires the query cache, change feed, and mutation coordinator
// into one engine with a single invalidation path
package sync

import (
	"context"
	"time"

	"crewdesk/internal/adapters/backend"
	"crewdesk/internal/core/querykey"
	"crewdesk/internal/platform/logger"
	"crewdesk/internal/services/sync/cache"
	"crewdesk/internal/services/sync/feed"
	"crewdesk/internal/services/sync/mutate"
)

// Config tunes the engine
type Config struct {
	DefaultTTL    time.Duration
	Retention     time.Duration
	SweepInterval time.Duration
}

const defaultSweepInterval = time.Minute

// Engine is the process-scoped synchronization runtime
// Remote changes and local mutations both funnel into the cache's
// invalidation path, so consumers only ever read through Cache
type Engine struct {
	Cache *cache.Cache
	Feed  *feed.Manager
	Mut   *mutate.Coordinator

	sweepEvery time.Duration
	log        logger.Logger

	feedSub *feed.Subscription
}

// New assembles an engine over the given backend client and listener
func New(cfg Config, client backend.Client, listener backend.Listener) *Engine {
	c := cache.New(cache.Config{DefaultTTL: cfg.DefaultTTL, Retention: cfg.Retention})
	f := feed.New(listener)
	e := &Engine{
		Cache:      c,
		Feed:       f,
		Mut:        mutate.New(client, c, nil),
		sweepEvery: cfg.SweepInterval,
		log:        *logger.Named("sync"),
	}
	if e.sweepEvery <= 0 {
		e.sweepEvery = defaultSweepInterval
	}

	// every remote change invalidates its table and the timeline; the gap
	// after a reconnect invalidates everything
	e.feedSub = f.Subscribe("", nil, e.onChange)
	f.OnReconnect(c.InvalidateAll)
	return e
}

func (e *Engine) onChange(ev feed.Event) {
	e.Cache.InvalidatePrefix(querykey.ResourcePrefix(ev.Table))
	e.Cache.InvalidatePrefix(querykey.ResourcePrefix("timeline"))
}

// Run drives the feed and the retention sweeper until ctx is done
func (e *Engine) Run(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- e.Feed.Run(ctx) }()

	tick := time.NewTicker(e.sweepEvery)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if n := e.Cache.Sweep(); n > 0 {
				e.log.Debug().Int("evicted", n).Msg("cache sweep")
			}
		case err := <-done:
			return err
		}
	}
}

// Close tears the engine down; the sign-out path drops all cached state
func (e *Engine) Close() {
	e.feedSub.Close()
	e.Cache.Clear()
}
