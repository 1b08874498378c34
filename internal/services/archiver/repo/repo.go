// Package repo reads change_log batches and tracks the archiver checkpoint
package repo

import (
	"context"

	"crewdesk/internal/modkit/repokit"
	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/platform/store"
	"crewdesk/internal/services/archiver/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Repo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Repo { return &pg{q: q} }

// Repo is the archiver's storage surface
type Repo interface {
	// ChangesAfter returns up to limit rows with id > afterID, ascending
	ChangesAfter(ctx context.Context, afterID int64, limit int) ([]domain.Change, error)

	// Checkpoint returns the saved high-water mark for name, 0 when unseen
	Checkpoint(ctx context.Context, name string) (int64, error)

	// SaveCheckpoint records lastID as the high-water mark for name
	SaveCheckpoint(ctx context.Context, name string, lastID int64) error
}

// ChangesAfter reads the next batch of change rows in id order
// Actor names are resolved here so the archive carries them denormalized;
// the columnar copy is append only and never re-reads users
func (s *pg) ChangesAfter(ctx context.Context, afterID int64, limit int) ([]domain.Change, error) {
	out, err := store.StructsByName[domain.Change](ctx, s.q, `
		SELECT
			c.id,
			c.entity_table,
			c.entity_id,
			c.op,
			c.actor_id,
			coalesce(u.name, '') AS actor_name,
			c.occurred_at,
			c.meta::text AS meta,
			c.changes::text AS changes
		FROM change_log c
		LEFT JOIN users u ON u.id = c.actor_id
		WHERE c.id > $1
		ORDER BY c.id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, perr.FromPostgresf(err, "read change_log batch")
	}
	return out, nil
}

// Checkpoint reads the stored high-water mark for name
func (s *pg) Checkpoint(ctx context.Context, name string) (int64, error) {
	last, err := store.Scalar[int64](ctx, s.q, `
		SELECT coalesce((SELECT last_id FROM archive_checkpoint WHERE name = $1), 0)
	`, name)
	if err != nil {
		return 0, perr.FromPostgresf(err, "read archive checkpoint")
	}
	return last, nil
}

// SaveCheckpoint upserts the high-water mark for name
func (s *pg) SaveCheckpoint(ctx context.Context, name string, lastID int64) error {
	if err := store.ExecOne(ctx, s.q, `
		INSERT INTO archive_checkpoint (name, last_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name)
		DO UPDATE SET last_id = EXCLUDED.last_id, updated_at = now()
	`, name, lastID); err != nil {
		return perr.FromPostgresf(err, "save archive checkpoint")
	}
	return nil
}
