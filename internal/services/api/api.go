// Package api provides the HTTP API for the application
package api

import (
	"crewdesk/internal/platform/config"
	"crewdesk/internal/platform/logger"
	phttp "crewdesk/internal/platform/net/http"
	"crewdesk/internal/platform/store"

	"crewdesk/internal/modkit"
	"crewdesk/internal/modkit/httpkit"
	"crewdesk/internal/modkit/module"
	"crewdesk/internal/modkit/swaggerkit"

	"crewdesk/internal/adapters/backend"
	metamod "crewdesk/internal/services/meta/module"
	recordsmod "crewdesk/internal/services/records/module"
	syncsvc "crewdesk/internal/services/sync"
	timelinemod "crewdesk/internal/services/timeline/module"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Sync           *syncsvc.Engine
	Backend        backend.Client
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg:  opt.Config,
		PG:   opt.Store.PG,
		CH:   opt.Store.CH,
		Sync: opt.Sync,
	}

	mods := []module.Module{
		metamod.New(deps),
		recordsmod.New(deps, opt.Backend),
		timelinemod.New(deps),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
		r.Handle("/metrics", promhttp.Handler())

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
