// @title         Crewdesk API
// @version       0.1.0
// @description   Record sync and activity timeline endpoints

package main

import (
	"context"
	"time"

	"crewdesk/internal/modkit/repokit"
	"crewdesk/internal/platform/config"
	"crewdesk/internal/platform/logger"
	phttp "crewdesk/internal/platform/net/http"
	"crewdesk/internal/platform/store"

	"crewdesk/internal/adapters/backend"
	"crewdesk/internal/services/api"
	syncsvc "crewdesk/internal/services/sync"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	syncCfg := root.Prefix("CORE_SYNC_")

	// bring up logging early
	l := logger.Get()

	pgURL := pgCfg.MustString("DBURL")

	// open the platform store (postgres + optional CH archive)
	st, err := store.Open(
		context.Background(),
		store.Config{
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgURL,
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				Enabled:    chCfg.MayBool("ENABLED", false),
				URL:        chCfg.MayString("DBURL", ""),
				ClientName: "crewdesk",
				ClientTag:  "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// fail fast if any enabled backend is unreachable
	repokit.MustGuard(context.Background(), st)

	// record tables, change_log, and audit triggers
	if err := backend.EnsureSchema(context.Background(), st.PG); err != nil {
		l.Panic().Err(err).Msg("schema setup failed")
	}

	// sync engine: query cache fed by the pg change feed
	client := backend.NewPG(st.PG)
	eng := syncsvc.New(
		syncsvc.Config{
			DefaultTTL:    syncCfg.MayDuration("TTL", 30*time.Second),
			Retention:     syncCfg.MayDuration("RETENTION", 5*time.Minute),
			SweepInterval: syncCfg.MayDuration("SWEEP_INTERVAL", time.Minute),
		},
		client,
		backend.NewPGListener(pgURL),
	)
	defer eng.Close()

	engCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()
	go func() {
		if err := eng.Run(engCtx); err != nil && engCtx.Err() == nil {
			l.Error().Err(err).Msg("sync engine stopped")
		}
	}()

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			Sync:           eng,
			Backend:        client,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	// run
	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
