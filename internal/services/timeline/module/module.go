// Package module wires the timeline into the API using modkit
package module

import (
	"net/http"

	modkit "crewdesk/internal/modkit"
	"crewdesk/internal/modkit/httpkit"
	str "crewdesk/internal/platform/strings"
	tlhttp "crewdesk/internal/services/timeline/http"
	tlrepo "crewdesk/internal/services/timeline/repo"
	tlsvc "crewdesk/internal/services/timeline/service"
)

// Module implements the timeline module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc tlsvc.Service
}

// New constructs the timeline module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("timeline"), modkit.WithPrefix("/timeline")}, opts...)...)

	var archive tlrepo.Storage
	if deps.CH != nil {
		archive = tlrepo.NewArchive(deps.CH)
	}
	svc := tlsvc.New(deps.PG, tlrepo.NewPG(), archive, deps.Sync)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptTimelinePort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		tlhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
