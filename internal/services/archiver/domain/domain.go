// Package domain holds archiver types shared across its layers
package domain

import "time"

// Change is one change_log row as the archiver ships it
// The db tags line up with the batch query's column names
type Change struct {
	ID          int64     `db:"id"`
	EntityTable string    `db:"entity_table"`
	EntityID    string    `db:"entity_id"`
	Op          string    `db:"op"`
	ActorID     string    `db:"actor_id"`
	ActorName   string    `db:"actor_name"`
	OccurredAt  time.Time `db:"occurred_at"`
	Meta        string    `db:"meta"`
	Changes     string    `db:"changes"`
}

// Stats summarizes one drain pass
type Stats struct {
	Rows   int
	LastID int64
}
