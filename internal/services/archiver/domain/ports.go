package domain

import "context"

// WorkerPort runs the long-lived change_log pump
type WorkerPort interface {
	Run(ctx context.Context) error
}

// DrainerPort ships everything currently pending and returns, for
// one-shot catch-up runs
type DrainerPort interface {
	Drain(ctx context.Context) (Stats, error)
}
