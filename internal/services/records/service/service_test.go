package service

import (
	"context"
	"sync"
	"testing"

	"crewdesk/internal/adapters/backend"
	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/services/records/domain"
	syncsvc "crewdesk/internal/services/sync"
)

type fakeClient struct {
	mu    sync.Mutex
	lists int
	rows  []backend.Record
}

func (f *fakeClient) List(_ context.Context, table string, _ backend.ListQuery) ([]backend.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return f.rows, nil
}

func (f *fakeClient) Get(_ context.Context, table, id string) (backend.Record, error) {
	return backend.Record{}, perr.NotFoundf("%s/%s", table, id)
}

func (f *fakeClient) Insert(_ context.Context, table string, fields map[string]any, _ string) (backend.Record, error) {
	rec := backend.Record{ID: "new", Table: table, Fields: fields}
	f.mu.Lock()
	f.rows = append(f.rows, rec)
	f.mu.Unlock()
	return rec, nil
}

func (f *fakeClient) Update(_ context.Context, table, id string, fields map[string]any, _ string) (backend.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			for k, v := range fields {
				f.rows[i].Fields[k] = v
			}
			return f.rows[i], nil
		}
	}
	return backend.Record{}, perr.NotFoundf("%s/%s", table, id)
}

func (f *fakeClient) Delete(_ context.Context, table, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return perr.NotFoundf("%s/%s", table, id)
}

type idleListener struct{}

func (idleListener) Listen(ctx context.Context, onReady func(), _ func(backend.ChangeEvent)) error {
	if onReady != nil {
		onReady()
	}
	<-ctx.Done()
	return ctx.Err()
}

func newSvc(f *fakeClient) *Svc {
	return New(f, syncsvc.New(syncsvc.Config{}, f, idleListener{}))
}

func TestList_CachesAndRefreshBypasses(t *testing.T) {
	t.Parallel()

	f := &fakeClient{rows: []backend.Record{{ID: "s1", Fields: map[string]any{"name": "Welding"}}}}
	s := newSvc(f)
	ctx := context.Background()
	in := domain.ListInput{Table: "skills"}

	out, err := s.List(ctx, "u1", in)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out.Records) != 1 || out.Records[0].ID != "s1" {
		t.Fatalf("records = %+v", out.Records)
	}

	if _, err := s.List(ctx, "u1", in); err != nil {
		t.Fatalf("cached List: %v", err)
	}
	if f.lists != 1 {
		t.Fatalf("backend hit %d times, want cached second read", f.lists)
	}

	in.Refresh = true
	if _, err := s.List(ctx, "u1", in); err != nil {
		t.Fatalf("refresh List: %v", err)
	}
	if f.lists != 2 {
		t.Fatalf("refresh did not reach the backend: %d", f.lists)
	}
}

func TestList_UnknownTable(t *testing.T) {
	t.Parallel()

	s := newSvc(&fakeClient{})
	_, err := s.List(context.Background(), "u1", domain.ListInput{Table: "secrets"})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("got %v", err)
	}
}

func TestUpdate_ReadYourWrites(t *testing.T) {
	t.Parallel()

	f := &fakeClient{rows: []backend.Record{{ID: "s1", Fields: map[string]any{"name": "Welding"}}}}
	s := newSvc(f)
	ctx := context.Background()

	if _, err := s.List(ctx, "u1", domain.ListInput{Table: "skills"}); err != nil {
		t.Fatalf("warm: %v", err)
	}

	rec, err := s.Update(ctx, "u1", domain.UpdateInput{
		Table: "skills", ID: "s1", Fields: map[string]any{"name": "TIG Welding"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Fields["name"] != "TIG Welding" {
		t.Fatalf("returned row is not the committed one: %+v", rec)
	}

	// a list issued after the mutation resolves must refetch
	out, err := s.List(ctx, "u1", domain.ListInput{Table: "skills"})
	if err != nil {
		t.Fatalf("List after update: %v", err)
	}
	if out.Records[0].Fields["name"] != "TIG Welding" {
		t.Fatalf("stale read after mutation: %+v", out.Records[0])
	}
	if f.lists != 2 {
		t.Fatalf("backend lists = %d, want refetch after invalidation", f.lists)
	}
}

func TestDelete_SurfacesBackendError(t *testing.T) {
	t.Parallel()

	s := newSvc(&fakeClient{})
	err := s.Delete(context.Background(), "u1", domain.DeleteInput{Table: "skills", ID: "nope"})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("got %v", err)
	}
}
