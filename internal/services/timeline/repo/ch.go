package repo

import (
	"context"
	"fmt"
	"strings"

	"crewdesk/internal/core/timeline"
	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/platform/store"
)

// ArchiveTable is the columnar copy of change_log kept for long-range
// timeline reads; the archiver pumps rows into it
const ArchiveTable = "change_archive"

// Archive reads historical change rows from ClickHouse
// It backs the global feed beyond what the hot change_log retains
type Archive struct {
	ch store.Clickhouse
}

// NewArchive wraps the ClickHouse seam; a nil seam yields a source that
// returns nothing, keeping the feed usable without the archive
func NewArchive(ch store.Clickhouse) *Archive { return &Archive{ch: ch} }

// RecentChanges implements Storage against the archive table
func (a *Archive) RecentChanges(ctx context.Context, f Filters, limit int) ([]timeline.RawChange, error) {
	if a == nil || a.ch == nil {
		return nil, nil
	}

	var sb strings.Builder
	var args []any
	sb.WriteString(`
		SELECT change_id, entity_table, entity_id, op,
		       actor_id, actor_name, occurred_at, meta, changes
		FROM ` + ArchiveTable)
	var conds []string
	if f.EntityTable != "" {
		conds = append(conds, "entity_table = ?")
		args = append(args, f.EntityTable)
	}
	if f.EntityID != "" {
		conds = append(conds, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY occurred_at DESC, change_id DESC LIMIT %d", limit))

	rows, err := a.ch.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "read change archive")
	}
	defer rows.Close()

	// the clickhouse seam only exposes Query, so the shared scanner runs
	// over the open rows directly
	out, err := store.CollectRows(rows, scanRawChange)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "scan change archive")
	}
	return out, nil
}
