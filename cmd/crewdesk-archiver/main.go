package main

import (
	"context"
	"flag"
	"time"

	"crewdesk/internal/modkit"
	"crewdesk/internal/modkit/module"
	"crewdesk/internal/modkit/repokit"
	"crewdesk/internal/platform/config"
	"crewdesk/internal/platform/logger"
	"crewdesk/internal/platform/store"

	"crewdesk/internal/adapters/backend"
	archmod "crewdesk/internal/services/archiver/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    true,
			URL:        chCfg.MustString("DBURL"),
			ClientName: "crewdesk",
			ClientTag:  "archiver",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// Flags
	var (
		fMode     = flag.String("mode", "worker", "archiver mode: worker | drain")
		fBatch    = flag.Int("batch", 0, "max rows per archive insert (0 = from env or default)")
		fInterval = flag.Duration("interval", 0, "worker poll interval (0 = from env or default)")
		fDryRun   = flag.Bool("dryrun", false, "read but do not write or advance the checkpoint")
	)
	flag.Parse()

	// both backends must answer before the pump starts
	repokit.MustGuard(context.Background(), st)

	// the checkpoint table rides along with the rest of the schema
	if err := backend.EnsureSchema(context.Background(), st.PG); err != nil {
		l.Panic().Err(err).Msg("schema setup failed")
	}

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	ar := archmod.New(deps, archmod.Options{
		BatchSize: *fBatch,
		Interval:  *fInterval,
		DryRun:    *fDryRun,
	})

	module.Register(ar.Name(), ar.Ports())

	ports := module.MustPortsOf[archmod.Ports](ar)

	ctx := context.Background()

	if err := ar.Service().EnsureArchive(ctx); err != nil {
		l.Panic().Err(err).Msg("archive table setup failed")
	}

	switch *fMode {
	case "worker":
		// Run forever (until ctx cancel) pumping change_log into CH
		if err := ports.Worker.Run(ctx); err != nil {
			l.Fatal().Err(err).Msg("archiver worker failed")
		}

	case "drain":
		// Ship everything pending once, then exit
		start := time.Now()
		stats, err := ports.Drainer.Drain(ctx)
		if err != nil {
			l.Fatal().Err(err).Msg("archiver drain failed")
		}
		l.Info().
			Int("rows", stats.Rows).
			Int64("last_id", stats.LastID).
			Dur("took", time.Since(start)).
			Msg("archiver drain complete")

	default:
		l.Panic().Str("mode", *fMode).Msg("archiver unknown -mode (expected: worker | drain)")
	}
}
