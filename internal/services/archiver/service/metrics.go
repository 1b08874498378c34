package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsShipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_archiver_rows_total",
		Help: "Change rows copied into the columnar archive.",
	})
	batches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_archiver_batches_total",
		Help: "Archive insert batches completed.",
	})
)
