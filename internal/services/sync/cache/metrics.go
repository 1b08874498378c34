package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_querycache_hits_total",
		Help: "Gets served fresh from cache.",
	})
	misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_querycache_misses_total",
		Help: "Gets that started a blocking fetch.",
	})
	coalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_querycache_coalesced_total",
		Help: "Gets that joined an already in-flight fetch.",
	})
	staleServes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_querycache_stale_serves_total",
		Help: "Gets answered with expired data while revalidating.",
	})
	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_querycache_fetch_errors_total",
		Help: "Fetches that completed with an error.",
	})
	invalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_querycache_invalidations_total",
		Help: "Entries marked stale by mutations or feed events.",
	})
	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_querycache_evictions_total",
		Help: "Unreferenced entries dropped by Sweep.",
	})
)
