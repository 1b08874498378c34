package module

import (
	"context"

	"crewdesk/internal/services/records/domain"
	recsvc "crewdesk/internal/services/records/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptRecordsPort struct{ svc recsvc.Service }

// List returns rows from one record table
func (a adaptRecordsPort) List(ctx context.Context, actorID string, in domain.ListInput) (domain.ListOutput, error) {
	return a.svc.List(ctx, actorID, in)
}

// Create inserts one record
func (a adaptRecordsPort) Create(ctx context.Context, actorID string, in domain.CreateInput) (domain.RecordDTO, error) {
	return a.svc.Create(ctx, actorID, in)
}

// Update patches one record
func (a adaptRecordsPort) Update(ctx context.Context, actorID string, in domain.UpdateInput) (domain.RecordDTO, error) {
	return a.svc.Update(ctx, actorID, in)
}

// Delete removes one record
func (a adaptRecordsPort) Delete(ctx context.Context, actorID string, in domain.DeleteInput) error {
	return a.svc.Delete(ctx, actorID, in)
}
