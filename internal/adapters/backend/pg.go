package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"crewdesk/internal/modkit/repokit"
	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/platform/store"

	"github.com/google/uuid"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// PG implements Client over Postgres
type PG struct {
	db repokit.TxRunner
}

// NewPG constructs the Postgres-backed record client
func NewPG(db repokit.TxRunner) *PG { return &PG{db: db} }

var _ Client = (*PG)(nil)

// List implements Client
func (c *PG) List(ctx context.Context, table string, q ListQuery) ([]Record, error) {
	if !KnownTable(table) {
		return nil, perr.InvalidArgf("unknown table %q", table)
	}

	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString("SELECT * FROM " + table)

	first := true
	for col, val := range q.Filter {
		if !KnownColumn(table, col) {
			return nil, perr.InvalidArgf("unknown filter column %q for table %q", col, table)
		}
		if first {
			sb.WriteString(" WHERE ")
			first = false
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(col + "::text = " + arg(val))
	}

	sortCol := q.SortField
	if sortCol == "" {
		sortCol = "updated_at"
	}
	if !sortable(table, sortCol) {
		return nil, perr.InvalidArgf("unknown sort column %q for table %q", sortCol, table)
	}
	dir := "ASC"
	if q.SortDesc || q.SortField == "" {
		dir = "DESC"
	}
	// id as a stable tiebreak so pages don't shuffle between refetches
	sb.WriteString(" ORDER BY " + sortCol + " " + dir + ", id ASC")

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	sb.WriteString(" LIMIT " + arg(limit))

	ms, err := store.Maps(ctx, c.db, sb.String(), args...)
	if err != nil {
		return nil, perr.FromPostgresf(err, "list %s", table)
	}
	out := make([]Record, 0, len(ms))
	for _, m := range ms {
		out = append(out, recordFromMap(table, m))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Get implements Client
func (c *PG) Get(ctx context.Context, table, id string) (Record, error) {
	if !KnownTable(table) {
		return Record{}, perr.InvalidArgf("unknown table %q", table)
	}
	return getOne(ctx, c.db, table, id)
}

// Insert implements Client
// The row id is generated here so callers can address the record immediately
func (c *PG) Insert(ctx context.Context, table string, fields map[string]any, actorID string) (Record, error) {
	if !KnownTable(table) {
		return Record{}, perr.InvalidArgf("unknown table %q", table)
	}
	cols, vals, err := splitFields(table, fields)
	if err != nil {
		return Record{}, err
	}

	id := uuid.NewString()
	var rec Record
	err = repokit.WithTx(ctx, c.db, func(q repokit.Queryer) error {
		if err := repokit.RunMidHooks(ctx, q, actorHook(actorID)); err != nil {
			return err
		}

		var sb strings.Builder
		sb.WriteString("INSERT INTO " + table + " (id")
		for _, col := range cols {
			sb.WriteString(", " + col)
		}
		sb.WriteString(") VALUES ($1")
		for i := range cols {
			fmt.Fprintf(&sb, ", $%d", i+2)
		}
		sb.WriteString(")")

		args := append([]any{id}, vals...)
		if _, err := store.Exec(ctx, q, sb.String(), args...); err != nil {
			return perr.FromPostgresf(err, "insert %s", table)
		}

		got, err := getOne(ctx, q, table, id)
		if err != nil {
			return err
		}
		rec = got
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update implements Client
// Returns the row as committed so callers can serve their own write back
func (c *PG) Update(ctx context.Context, table, id string, fields map[string]any, actorID string) (Record, error) {
	if !KnownTable(table) {
		return Record{}, perr.InvalidArgf("unknown table %q", table)
	}
	cols, vals, err := splitFields(table, fields)
	if err != nil {
		return Record{}, err
	}
	if len(cols) == 0 {
		return Record{}, perr.InvalidArgf("update %s/%s: no fields", table, id)
	}

	var rec Record
	err = repokit.WithTx(ctx, c.db, func(q repokit.Queryer) error {
		if err := repokit.RunMidHooks(ctx, q, actorHook(actorID)); err != nil {
			return err
		}

		var sb strings.Builder
		sb.WriteString("UPDATE " + table + " SET updated_at = now()")
		for i, col := range cols {
			fmt.Fprintf(&sb, ", %s = $%d", col, i+1)
		}
		fmt.Fprintf(&sb, " WHERE id = $%d", len(cols)+1)

		args := append(vals, id)
		tag, err := store.Exec(ctx, q, sb.String(), args...)
		if err != nil {
			return perr.FromPostgresf(err, "update %s/%s", table, id)
		}
		if tag.RowsAffected() == 0 {
			return perr.NotFoundf("%s/%s", table, id)
		}

		got, err := getOne(ctx, q, table, id)
		if err != nil {
			return err
		}
		rec = got
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete implements Client
func (c *PG) Delete(ctx context.Context, table, id, actorID string) error {
	if !KnownTable(table) {
		return perr.InvalidArgf("unknown table %q", table)
	}
	return repokit.WithTx(ctx, c.db, func(q repokit.Queryer) error {
		if err := repokit.RunMidHooks(ctx, q, actorHook(actorID)); err != nil {
			return err
		}
		tag, err := store.Exec(ctx, q, "DELETE FROM "+table+" WHERE id = $1", id)
		if err != nil {
			return perr.FromPostgresf(err, "delete %s/%s", table, id)
		}
		if tag.RowsAffected() == 0 {
			return perr.NotFoundf("%s/%s", table, id)
		}
		return nil
	})
}

// actorHook stamps the transaction-local actor the audit triggers record
func actorHook(actorID string) repokit.MidHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		_, err := q.Exec(ctx, "SELECT set_config('crewdesk.actor_id', $1, true)", actorID)
		if err != nil {
			return perr.FromPostgresf(err, "set actor")
		}
		return nil
	}
}

func getOne(ctx context.Context, q repokit.Queryer, table, id string) (Record, error) {
	m, err := store.Map(ctx, q, "SELECT * FROM "+table+" WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, perr.ErrNotFound) {
			return Record{}, perr.NotFoundf("%s/%s", table, id)
		}
		return Record{}, perr.FromPostgresf(err, "get %s/%s", table, id)
	}
	return recordFromMap(table, m), nil
}

// recordFromMap lifts a column map into generic form; column set comes from
// the result so schema additions flow through without code changes
func recordFromMap(table string, m map[string]any) Record {
	rec := Record{Table: table, Fields: make(map[string]any, len(m))}
	for col, val := range m {
		switch col {
		case "id":
			rec.ID = asString(val)
		case "created_at":
			if t, ok := val.(time.Time); ok {
				rec.CreatedAt = t
			}
		case "updated_at":
			if t, ok := val.(time.Time); ok {
				rec.UpdatedAt = t
			}
		default:
			rec.Fields[col] = val
		}
	}
	return rec
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

// splitFields validates a field map against the table registry and returns
// deterministic column order for SQL building
func splitFields(table string, fields map[string]any) ([]string, []any, error) {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !KnownColumn(table, col) {
			return nil, nil, perr.InvalidArgf("unknown column %q for table %q", col, table)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	vals := make([]any, len(cols))
	for i, col := range cols {
		vals[i] = fields[col]
	}
	return cols, vals, nil
}

func sortable(table, col string) bool {
	switch col {
	case "id", "created_at", "updated_at":
		return true
	}
	return KnownColumn(table, col)
}
