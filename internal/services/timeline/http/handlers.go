// Package http provides http transport for the timeline
package http

import (
	stdhttp "net/http"

	"crewdesk/internal/modkit/httpkit"
	"crewdesk/internal/services/timeline/domain"
	svc "crewdesk/internal/services/timeline/service"
)

// Register mounts timeline endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// aggregated activity feed, optionally scoped to one entity
	httpkit.PostJSON[domain.FeedInput](r, "/feed", h.feed)
}

type handlers struct{ svc svc.Service }

// @Summary Aggregated activity feed
// @Tags Timeline
// @Accept json
// @Produce json
// @Param payload body domain.FeedInput true "Filters"
// @Success 200 {object} domain.FeedOutput "ok"
// @Router /timeline/feed [post]
func (h *handlers) feed(r *stdhttp.Request, in domain.FeedInput) (any, error) {
	return h.svc.Feed(r.Context(), in)
}
