package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Feed(ctx context.Context, in FeedInput) (FeedOutput, error)
}
