// Package module wires the archiver service and exposes its ports
package module

import (
	"crewdesk/internal/modkit"
	"crewdesk/internal/modkit/httpkit"

	"crewdesk/internal/services/archiver/service"
)

// Module defines the archiver module
type Module struct {
	deps  modkit.Deps
	ports Ports
	svc   *service.Svc
}

// New constructs the archiver module with its ports
func New(deps modkit.Deps, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)
	if overrides.BatchSize != 0 {
		opts.BatchSize = overrides.BatchSize
	}
	if overrides.Interval != 0 {
		opts.Interval = overrides.Interval
	}
	if overrides.DryRun {
		opts.DryRun = true
	}

	svc := service.New(deps, service.Config{
		BatchSize: opts.BatchSize,
		Interval:  opts.Interval,
		DryRun:    opts.DryRun,
	})

	m := &Module{deps: deps, svc: svc}
	m.ports = Ports{
		Worker:  svc,
		Drainer: svc,
	}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "archiver" }

// Ports returns the module ports (Worker, Drainer)
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module config prefix (none for archiver)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes for archiver (it's a worker service)
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Service exposes the concrete service for DDL setup at boot
func (m *Module) Service() *service.Svc { return m.svc }
