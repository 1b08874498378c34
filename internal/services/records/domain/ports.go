package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	List(ctx context.Context, actorID string, in ListInput) (ListOutput, error)
	Create(ctx context.Context, actorID string, in CreateInput) (RecordDTO, error)
	Update(ctx context.Context, actorID string, in UpdateInput) (RecordDTO, error)
	Delete(ctx context.Context, actorID string, in DeleteInput) error
}
