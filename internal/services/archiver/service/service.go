// Package service contains the archiver workflows
package service

import (
	"context"
	"strconv"
	"time"

	"crewdesk/internal/modkit"
	"crewdesk/internal/modkit/repokit"
	perr "crewdesk/internal/platform/errors"
	"crewdesk/internal/platform/logger"
	"crewdesk/internal/platform/store"
	"crewdesk/internal/services/archiver/domain"
	"crewdesk/internal/services/archiver/repo"
	timelinerepo "crewdesk/internal/services/timeline/repo"
)

// CheckpointName keys the archiver's high-water mark in archive_checkpoint
const CheckpointName = "change_archive"

// Service defines the archiver service contract
type Service interface {
	domain.WorkerPort
	domain.DrainerPort
}

// Config carries runtime knobs for the pump
type Config struct {
	// BatchSize is the max change_log rows shipped per insert
	BatchSize int

	// Interval is how often the worker polls for new rows
	Interval time.Duration

	// DryRun reads and advances nothing, logging what would ship
	DryRun bool
}

// Svc implements the archiver service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	ch     store.Clickhouse
	deps   modkit.Deps
	config Config
	log    logger.Logger
}

// New constructs an archiver service
func New(deps modkit.Deps, cfg Config) *Svc {
	if deps.PG == nil {
		panic("archiver.Service requires a non nil TxRunner")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}

	b := repo.NewPG()
	return &Svc{
		Repo:   b.Bind(deps.PG),
		binder: b,
		db:     deps.PG,
		ch:     deps.CH,
		deps:   deps,
		config: cfg,
		log:    *logger.Named("archiver"),
	}
}

// chExecer is the optional DDL surface on the ClickHouse seam
type chExecer interface {
	Exec(ctx context.Context, sql string, args ...any) error
}

// EnsureArchive creates the columnar archive table when the seam allows DDL
// Seams without Exec (fakes, disabled CH) are left alone
func (s *Svc) EnsureArchive(ctx context.Context) error {
	ex, ok := s.ch.(chExecer)
	if !ok {
		s.log.Warn().Msg("ch seam cannot run DDL, assuming archive table exists")
		return nil
	}
	return ex.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+timelinerepo.ArchiveTable+` (
			change_id    String,
			entity_table LowCardinality(String),
			entity_id    String,
			op           LowCardinality(String),
			actor_id     String,
			actor_name   String,
			occurred_at  DateTime64(3, 'UTC'),
			meta         String,
			changes      String
		)
		ENGINE = MergeTree
		ORDER BY (entity_table, entity_id, occurred_at)
	`)
}

// Run polls change_log and ships new rows until ctx is done
func (s *Svc) Run(ctx context.Context) error {
	if _, err := s.Drain(ctx); err != nil {
		return err
	}

	t := time.NewTicker(s.config.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := s.Drain(ctx); err != nil {
				return err
			}
		}
	}
}

// Drain ships every pending row in batches and returns totals
func (s *Svc) Drain(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	last, err := s.Repo.Checkpoint(ctx, CheckpointName)
	if err != nil {
		return stats, err
	}
	stats.LastID = last

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rows, err := s.Repo.ChangesAfter(ctx, stats.LastID, s.config.BatchSize)
		if err != nil {
			return stats, err
		}
		if len(rows) == 0 {
			return stats, nil
		}

		if err := s.ship(ctx, rows); err != nil {
			return stats, err
		}
		stats.Rows += len(rows)
		stats.LastID = rows[len(rows)-1].ID

		if !s.config.DryRun {
			if err := s.Repo.SaveCheckpoint(ctx, CheckpointName, stats.LastID); err != nil {
				return stats, err
			}
		}
		batches.Inc()
		rowsShipped.Add(float64(len(rows)))
		s.log.Debug().
			Int("rows", len(rows)).
			Int64("last_id", stats.LastID).
			Msg("archived change batch")

		if len(rows) < s.config.BatchSize {
			return stats, nil
		}
	}
}

// ship writes one batch into the archive table in column order
func (s *Svc) ship(ctx context.Context, changes []domain.Change) error {
	if s.config.DryRun {
		s.log.Info().Int("rows", len(changes)).Msg("dryrun, skipping archive insert")
		return nil
	}
	if s.ch == nil {
		return perr.Unavailablef("archiver requires a clickhouse seam")
	}

	data := make([][]any, 0, len(changes))
	for _, c := range changes {
		data = append(data, []any{
			strconv.FormatInt(c.ID, 10),
			c.EntityTable,
			c.EntityID,
			c.Op,
			c.ActorID,
			c.ActorName,
			c.OccurredAt,
			c.Meta,
			c.Changes,
		})
	}
	return s.ch.Insert(ctx, timelinerepo.ArchiveTable, data)
}
