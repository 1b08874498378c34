// Package http provides http transport for records
package http

import (
	stdhttp "net/http"

	"crewdesk/internal/modkit/httpkit"
	"crewdesk/internal/services/records/domain"
	svc "crewdesk/internal/services/records/service"
)

// actorHeader carries the acting user's id for audit attribution
const actorHeader = "X-Actor-Id"

// Register mounts record endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.ListInput](r, "/list", h.list)
	httpkit.PostJSON[domain.CreateInput](r, "/create", h.create)
	httpkit.PostJSON[domain.UpdateInput](r, "/update", h.update)
	httpkit.PostJSON[domain.DeleteInput](r, "/delete", h.remove)
}

type handlers struct{ svc svc.Service }

func actor(r *stdhttp.Request) string { return r.Header.Get(actorHeader) }

// @Summary List rows from one record table
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body domain.ListInput true "Query"
// @Success 200 {object} domain.ListOutput "ok"
// @Router /records/list [post]
func (h *handlers) list(r *stdhttp.Request, in domain.ListInput) (any, error) {
	return h.svc.List(r.Context(), actor(r), in)
}

// @Summary Create one record
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body domain.CreateInput true "Row"
// @Success 200 {object} domain.RecordDTO "ok"
// @Router /records/create [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateInput) (any, error) {
	return h.svc.Create(r.Context(), actor(r), in)
}

// @Summary Patch one record
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body domain.UpdateInput true "Patch"
// @Success 200 {object} domain.RecordDTO "ok"
// @Router /records/update [post]
func (h *handlers) update(r *stdhttp.Request, in domain.UpdateInput) (any, error) {
	return h.svc.Update(r.Context(), actor(r), in)
}

// @Summary Delete one record
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body domain.DeleteInput true "Target"
// @Success 200 "ok"
// @Router /records/delete [post]
func (h *handlers) remove(r *stdhttp.Request, in domain.DeleteInput) (any, error) {
	return nil, h.svc.Delete(r.Context(), actor(r), in)
}
