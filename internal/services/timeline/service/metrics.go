package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var normalizeFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "crewdesk_timeline_normalize_fallbacks_total",
	Help: "Change rows mapped through the generic fallback, a schema drift signal.",
})
