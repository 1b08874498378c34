package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crewdesk/internal/core/timeline"
	"crewdesk/internal/platform/store"
)

type fakeQueryer struct {
	lastSQL  string
	lastArgs []any
	rows     *fakeRows
	queryErr error
}

func (f *fakeQueryer) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, errors.New("not used")
}

func (f *fakeQueryer) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	f.lastSQL = sql
	f.lastArgs = args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeQueryer) QueryRow(context.Context, string, ...any) store.Row { return nil }

type fakeRows struct {
	data   [][]any
	i      int
	closed bool
}

func (r *fakeRows) Next() bool { r.i++; return r.i <= len(r.data) }
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	for j, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[j].(string)
		case *time.Time:
			*p = row[j].(time.Time)
		default:
			return errors.New("unexpected dest type")
		}
	}
	return nil
}
func (r *fakeRows) Err() error        { return nil }
func (r *fakeRows) Close()            { r.closed = true }
func (r *fakeRows) Columns() []string { return nil }

func TestRecentChanges_ScansAndDecodes(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueryer{rows: &fakeRows{data: [][]any{
		{
			"41", "skills", "s1", "UPDATE", "u1", "Dana", at,
			`{"note":"bulk import"}`,
			`[{"field":"level","from":"1","to":"3"}]`,
		},
		{
			"40", "users", "u2", "INSERT", "", "", at,
			"", "not-json", // malformed diff degrades, never fails the read
		},
	}}}

	st := NewPG().Bind(q)
	got, err := st.RecentChanges(context.Background(), Filters{EntityTable: ""}, 50)
	if err != nil {
		t.Fatalf("RecentChanges: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}

	first := got[0]
	if first.ID != "41" || first.EntityType != "skills" || first.EventType != timeline.OpUpdate {
		t.Fatalf("first = %+v", first)
	}
	if first.ActorName != "Dana" || first.Meta["note"] != "bulk import" {
		t.Fatalf("first meta/actor = %+v", first)
	}
	if len(first.Changes) != 1 || first.Changes[0].Field != "level" {
		t.Fatalf("first changes = %+v", first.Changes)
	}

	second := got[1]
	if second.Meta != nil || second.Changes != nil {
		t.Fatalf("malformed payloads should decode to empty, got %+v", second)
	}

	if !q.rows.closed {
		t.Fatalf("rows not closed after read")
	}
}

func TestRecentChanges_AppliesFilters(t *testing.T) {
	t.Parallel()

	q := &fakeQueryer{rows: &fakeRows{}}
	st := NewPG().Bind(q)

	if _, err := st.RecentChanges(context.Background(), Filters{
		EntityTable: "skills",
		EntityID:    "s1",
	}, 10); err != nil {
		t.Fatalf("RecentChanges: %v", err)
	}
	if !strings.Contains(q.lastSQL, "c.entity_table = $1") ||
		!strings.Contains(q.lastSQL, "c.entity_id = $2") {
		t.Fatalf("filters missing from sql: %q", q.lastSQL)
	}
	if len(q.lastArgs) != 3 || q.lastArgs[0] != "skills" || q.lastArgs[1] != "s1" {
		t.Fatalf("args = %v", q.lastArgs)
	}
}
