// Package repo provides the timeline change-log sources
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crewdesk/internal/core/timeline"
	"crewdesk/internal/modkit/repokit"
	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/platform/store"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Filters narrow a change-log read; zero value means everything
type Filters struct {
	EntityTable string
	EntityID    string
}

// Storage reads raw change rows newest first
type Storage interface {
	RecentChanges(ctx context.Context, f Filters, limit int) ([]timeline.RawChange, error)
}

// RecentChanges implements Storage over the unified change_log table
// Actor names are resolved against users at read time so renames show the
// current name, matching what the rest of the UI displays
func (s *pg) RecentChanges(ctx context.Context, f Filters, limit int) ([]timeline.RawChange, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`
		SELECT
			c.id::text,
			c.entity_table,
			c.entity_id,
			c.op,
			c.actor_id,
			coalesce(u.name, ''),
			c.occurred_at,
			c.meta::text,
			c.changes::text
		FROM change_log c
		LEFT JOIN users u ON u.id = c.actor_id
	`)
	var conds []string
	if f.EntityTable != "" {
		conds = append(conds, "c.entity_table = "+arg(f.EntityTable))
	}
	if f.EntityID != "" {
		conds = append(conds, "c.entity_id = "+arg(f.EntityID))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY c.occurred_at DESC, c.id DESC LIMIT " + arg(limit))

	out, err := store.Many(ctx, s.q, scanRawChange, sb.String(), args...)
	if err != nil {
		return nil, perr.FromPostgresf(err, "read change_log")
	}
	return out, nil
}

// scanRawChange maps one change_log row in the column order RecentChanges selects
func scanRawChange(r store.Row) (timeline.RawChange, error) {
	var (
		rc       timeline.RawChange
		op       string
		metaJSON string
		diffJSON string
	)
	if err := r.Scan(
		&rc.ID, &rc.EntityType, &rc.EntityID, &op,
		&rc.ActorID, &rc.ActorName, &rc.At, &metaJSON, &diffJSON,
	); err != nil {
		return timeline.RawChange{}, err
	}
	rc.EventType = timeline.Op(op)
	rc.Meta, rc.Changes = decodePayloads(metaJSON, diffJSON)
	return rc, nil
}

// decodePayloads tolerates malformed json: a bad meta or diff degrades to
// empty, it never fails the whole feed
func decodePayloads(metaJSON, diffJSON string) (map[string]string, []timeline.FieldChange) {
	var meta map[string]string
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &meta)
	}
	var diff []timeline.FieldChange
	if diffJSON != "" {
		_ = json.Unmarshal([]byte(diffJSON), &diff)
	}
	return meta, diff
}
