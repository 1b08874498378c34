// Package service contains record read and write workflows
// Reads go through the sync engine's query cache; writes go through the
// mutation coordinator so dependent cache entries are invalidated before a
// write returns
package service

import (
	"context"
	"strconv"

	"crewdesk/internal/adapters/backend"
	"crewdesk/internal/core/querykey"
	perr "crewdesk/internal/platform/errors"
	ptime "crewdesk/internal/platform/time"
	"crewdesk/internal/services/records/domain"
	syncsvc "crewdesk/internal/services/sync"
	"crewdesk/internal/services/sync/cache"
)

// Service defines the records service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the records service
type Svc struct {
	backend backend.Client
	eng     *syncsvc.Engine
}

// New constructs a records service
func New(client backend.Client, eng *syncsvc.Engine) *Svc {
	if client == nil {
		panic("records.Service requires a backend client")
	}
	if eng == nil {
		panic("records.Service requires the sync engine")
	}
	return &Svc{backend: client, eng: eng}
}

// List returns rows from one table, served from cache when fresh
func (s *Svc) List(ctx context.Context, actorID string, in domain.ListInput) (domain.ListOutput, error) {
	if !backend.KnownTable(in.Table) {
		return domain.ListOutput{}, perr.InvalidArgf("unknown table %q", in.Table)
	}

	key := listKey(in)
	if in.Refresh {
		s.eng.Cache.Invalidate(key)
	}

	fetch := func(ctx context.Context) (any, error) {
		recs, err := s.backend.List(ctx, in.Table, backend.ListQuery{
			Filter:    in.Filter,
			SortField: in.SortField,
			SortDesc:  in.SortDesc,
			Limit:     in.Limit,
		})
		if err != nil {
			return nil, err
		}
		return toDTOs(recs), nil
	}

	v, err := s.eng.Cache.Get(ctx, key, fetch, cache.Options{StaleWhileRevalidate: !in.Refresh})
	if err != nil && !v.HasData {
		return domain.ListOutput{}, err
	}

	records, _ := v.Data.([]domain.RecordDTO)
	return domain.ListOutput{
		Records:   records,
		FetchedAt: ptime.Ptr(v.FetchedAt),
		Stale:     err != nil || v.State != cache.StateFresh,
	}, nil
}

// Create inserts one row
func (s *Svc) Create(ctx context.Context, actorID string, in domain.CreateInput) (domain.RecordDTO, error) {
	rec, err := s.eng.Mut.Create(ctx, in.Table, in.Fields, actorID)
	if err != nil {
		return domain.RecordDTO{}, err
	}
	return toDTO(rec), nil
}

// Update patches one row; the returned DTO is the committed row, so callers
// read their own write without a refetch
func (s *Svc) Update(ctx context.Context, actorID string, in domain.UpdateInput) (domain.RecordDTO, error) {
	rec, err := s.eng.Mut.Update(ctx, in.Table, in.ID, in.Fields, actorID)
	if err != nil {
		return domain.RecordDTO{}, err
	}
	return toDTO(rec), nil
}

// Delete removes one row
func (s *Svc) Delete(ctx context.Context, actorID string, in domain.DeleteInput) error {
	return s.eng.Mut.Delete(ctx, in.Table, in.ID, actorID)
}

// listKey derives the canonical cache identity of a list read
// sort and limit are part of the identity, refresh is not
func listKey(in domain.ListInput) querykey.Key {
	filter := make(map[string]string, len(in.Filter)+1)
	for k, v := range in.Filter {
		filter[k] = v
	}
	if in.Limit > 0 {
		filter["$limit"] = strconv.Itoa(in.Limit)
	}
	return querykey.New(in.Table, filter).WithSort(in.SortField, in.SortDesc)
}

func toDTO(rec backend.Record) domain.RecordDTO {
	return domain.RecordDTO{
		ID:        rec.ID,
		Fields:    rec.Fields,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toDTOs(recs []backend.Record) []domain.RecordDTO {
	out := make([]domain.RecordDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, toDTO(r))
	}
	return out
}
