// Package backend is the adapter for the system of record. It exposes a small
// CRUD port over the whitelisted record tables plus a change-feed listener
// that surfaces every committed write as a ChangeEvent
//
// Design choices:
// - One generic port over a closed table registry rather than one repo per
//   table; the registry is the single place a new record kind is declared
// - Writes go through SQL triggers that append to change_log and NOTIFY, so
//   the feed sees every mutation including ones made by other processes
package backend

import (
	"context"
	"time"

	"crewdesk/internal/core/timeline"
)

// Channel is the NOTIFY channel the record triggers publish on
const Channel = "crewdesk_changes"

// Record is one row from a record table in generic form
type Record struct {
	ID        string
	Table     string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListQuery narrows a List call; zero value means everything, newest first
type ListQuery struct {
	Filter    map[string]string
	SortField string
	SortDesc  bool
	Limit     int
}

// ChangeEvent is one decoded NOTIFY payload from the change feed
type ChangeEvent struct {
	ChangeID string      `json:"change_id"`
	Table    string      `json:"table"`
	EntityID string      `json:"entity_id"`
	Op       timeline.Op `json:"op"`
	At       time.Time   `json:"at"`
}

// Client is the CRUD surface over the record tables
type Client interface {
	List(ctx context.Context, table string, q ListQuery) ([]Record, error)
	Get(ctx context.Context, table, id string) (Record, error)
	Insert(ctx context.Context, table string, fields map[string]any, actorID string) (Record, error)
	Update(ctx context.Context, table, id string, fields map[string]any, actorID string) (Record, error)
	Delete(ctx context.Context, table, id string, actorID string) error
}

// Listener delivers change events from one feed connection
// Listen blocks until ctx is done or the connection drops; callers own
// reconnect policy. onReady fires once the subscription is live, which is the
// point where a reconnecting caller must force a refetch to cover any gap
type Listener interface {
	Listen(ctx context.Context, onReady func(), onEvent func(ChangeEvent)) error
}

// tableSpec declares the mutable columns of one record table
// id, created_at and updated_at are managed by the adapter and triggers
type tableSpec struct {
	columns []string
}

var tables = map[string]tableSpec{
	"users":       {columns: []string{"name", "email", "role"}},
	"customers":   {columns: []string{"name", "city", "notes"}},
	"skills":      {columns: []string{"name", "level", "customer_id"}},
	"assignments": {columns: []string{"name", "status", "user_id", "customer_id", "starts_on", "ends_on"}},
}

// Tables returns the whitelisted record table names
func Tables() []string {
	out := make([]string, 0, len(tables))
	for t := range tables {
		out = append(out, t)
	}
	return out
}

// KnownTable reports whether table is in the registry
func KnownTable(table string) bool {
	_, ok := tables[table]
	return ok
}

// KnownColumn reports whether col is a mutable column of table
func KnownColumn(table, col string) bool {
	spec, ok := tables[table]
	if !ok {
		return false
	}
	for _, c := range spec.columns {
		if c == col {
			return true
		}
	}
	return false
}
