package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crewdesk/internal/modkit"
	"crewdesk/internal/platform/store"
	"crewdesk/internal/services/archiver/domain"
)

// stubTx satisfies the TxRunner seam so New passes its nil check;
// tests swap the bound repo for a fake afterwards
type stubTx struct{}

func (stubTx) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, errors.New("unexpected Exec")
}

func (stubTx) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (stubTx) QueryRow(context.Context, string, ...any) store.Row { return nil }

func (stubTx) Tx(context.Context, func(q store.RowQuerier) error) error {
	return errors.New("unexpected Tx")
}

type fakeRepo struct {
	rows       []domain.Change
	checkpoint int64
	saved      []int64
	afterSeen  []int64
}

func (f *fakeRepo) ChangesAfter(_ context.Context, afterID int64, limit int) ([]domain.Change, error) {
	f.afterSeen = append(f.afterSeen, afterID)
	var out []domain.Change
	for _, c := range f.rows {
		if c.ID > afterID {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) Checkpoint(context.Context, string) (int64, error) {
	return f.checkpoint, nil
}

func (f *fakeRepo) SaveCheckpoint(_ context.Context, _ string, lastID int64) error {
	f.saved = append(f.saved, lastID)
	return nil
}

type fakeCH struct {
	tables  []string
	batches [][][]any
	execSQL []string
	fail    error
}

func (f *fakeCH) Insert(_ context.Context, table string, data any) error {
	if f.fail != nil {
		return f.fail
	}
	f.tables = append(f.tables, table)
	f.batches = append(f.batches, data.([][]any))
	return nil
}

func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (f *fakeCH) Close() error { return nil }

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execSQL = append(f.execSQL, sql)
	return nil
}

func newTestSvc(t *testing.T, cfg Config, r *fakeRepo, ch *fakeCH) *Svc {
	t.Helper()
	s := New(modkit.Deps{PG: stubTx{}, CH: ch}, cfg)
	s.Repo = r
	return s
}

func changeRows(n int) []domain.Change {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]domain.Change, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Change{
			ID:          int64(i),
			EntityTable: "skills",
			EntityID:    "5",
			Op:          "UPDATE",
			ActorID:     "u1",
			ActorName:   "Ada",
			OccurredAt:  base.Add(time.Duration(i) * time.Minute),
			Meta:        `{"skill_name":"Welding"}`,
			Changes:     `[{"field":"name","oldValue":"A","newValue":"B"}]`,
		})
	}
	return out
}

func TestDrain_ShipsBatchesAndAdvancesCheckpoint(t *testing.T) {
	r := &fakeRepo{rows: changeRows(5)}
	ch := &fakeCH{}
	s := newTestSvc(t, Config{BatchSize: 2}, r, ch)

	stats, err := s.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Rows != 5 || stats.LastID != 5 {
		t.Fatalf("stats = %+v, want Rows=5 LastID=5", stats)
	}
	// 5 rows in batches of 2 means three inserts of sizes 2, 2, 1
	if len(ch.batches) != 3 {
		t.Fatalf("insert batches = %d, want 3", len(ch.batches))
	}
	if got := len(ch.batches[2]); got != 1 {
		t.Fatalf("final batch size = %d, want 1", got)
	}
	if r.saved[len(r.saved)-1] != 5 {
		t.Fatalf("final checkpoint = %d, want 5", r.saved[len(r.saved)-1])
	}
	for _, tab := range ch.tables {
		if tab != "change_archive" {
			t.Fatalf("insert targeted table %q", tab)
		}
	}
}

func TestDrain_ResumesFromCheckpoint(t *testing.T) {
	r := &fakeRepo{rows: changeRows(4), checkpoint: 2}
	ch := &fakeCH{}
	s := newTestSvc(t, Config{BatchSize: 10}, r, ch)

	stats, err := s.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Rows != 2 || stats.LastID != 4 {
		t.Fatalf("stats = %+v, want Rows=2 LastID=4", stats)
	}
	if r.afterSeen[0] != 2 {
		t.Fatalf("first read started after id %d, want 2", r.afterSeen[0])
	}
}

func TestDrain_NothingPending(t *testing.T) {
	r := &fakeRepo{checkpoint: 9}
	ch := &fakeCH{}
	s := newTestSvc(t, Config{}, r, ch)

	stats, err := s.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Rows != 0 || stats.LastID != 9 {
		t.Fatalf("stats = %+v, want Rows=0 LastID=9", stats)
	}
	if len(ch.batches) != 0 {
		t.Fatalf("expected no inserts, got %d", len(ch.batches))
	}
	if len(r.saved) != 0 {
		t.Fatalf("expected no checkpoint writes, got %v", r.saved)
	}
}

func TestDrain_DryRunLeavesCheckpointAlone(t *testing.T) {
	r := &fakeRepo{rows: changeRows(3)}
	ch := &fakeCH{}
	s := newTestSvc(t, Config{DryRun: true}, r, ch)

	stats, err := s.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Rows != 3 {
		t.Fatalf("stats.Rows = %d, want 3", stats.Rows)
	}
	if len(ch.batches) != 0 {
		t.Fatalf("dryrun must not insert, got %d batches", len(ch.batches))
	}
	if len(r.saved) != 0 {
		t.Fatalf("dryrun must not save checkpoints, got %v", r.saved)
	}
}

func TestDrain_InsertFailureStopsBeforeCheckpoint(t *testing.T) {
	r := &fakeRepo{rows: changeRows(2)}
	ch := &fakeCH{fail: errors.New("ch down")}
	s := newTestSvc(t, Config{}, r, ch)

	if _, err := s.Drain(context.Background()); err == nil {
		t.Fatal("expected insert error")
	}
	if len(r.saved) != 0 {
		t.Fatalf("checkpoint must not advance past a failed insert, got %v", r.saved)
	}
}

func TestShip_ColumnOrder(t *testing.T) {
	r := &fakeRepo{rows: changeRows(1)}
	ch := &fakeCH{}
	s := newTestSvc(t, Config{}, r, ch)

	if _, err := s.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	row := ch.batches[0][0]
	if row[0] != "1" || row[1] != "skills" || row[2] != "5" || row[3] != "UPDATE" {
		t.Fatalf("unexpected leading columns: %v", row[:4])
	}
	if row[4] != "u1" || row[5] != "Ada" {
		t.Fatalf("unexpected actor columns: %v", row[4:6])
	}
	if _, ok := row[6].(time.Time); !ok {
		t.Fatalf("occurred_at column is %T, want time.Time", row[6])
	}
}

func TestEnsureArchive(t *testing.T) {
	t.Run("with DDL capable seam", func(t *testing.T) {
		ch := &fakeCH{}
		s := newTestSvc(t, Config{}, &fakeRepo{}, ch)
		if err := s.EnsureArchive(context.Background()); err != nil {
			t.Fatalf("EnsureArchive: %v", err)
		}
		if len(ch.execSQL) != 1 || !strings.Contains(ch.execSQL[0], "change_archive") {
			t.Fatalf("expected one DDL statement for change_archive, got %v", ch.execSQL)
		}
	})

	t.Run("seam without Exec degrades", func(t *testing.T) {
		s := New(modkit.Deps{PG: stubTx{}}, Config{})
		s.Repo = &fakeRepo{}
		if err := s.EnsureArchive(context.Background()); err != nil {
			t.Fatalf("EnsureArchive without Exec: %v", err)
		}
	})
}
