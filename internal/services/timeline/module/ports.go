package module

import (
	"context"

	"crewdesk/internal/services/timeline/domain"
	tlsvc "crewdesk/internal/services/timeline/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptTimelinePort struct{ svc tlsvc.Service }

// Feed returns the aggregated activity feed
func (a adaptTimelinePort) Feed(ctx context.Context, in domain.FeedInput) (domain.FeedOutput, error) {
	return a.svc.Feed(ctx, in)
}
