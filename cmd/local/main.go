package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"github.com/baderkha/list-migrate/pkg/conditional"
	"github.com/baderkha/list-migrate/pkg/migrate"
	"github.com/baderkha/list-migrate/pkg/migrate/config"
	"github.com/baderkha/list-migrate/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/list-migrate/pkg/migrate/config/targetcfg"
	"github.com/baderkha/list-migrate/pkg/migrate/destination/s3list"
	"github.com/baderkha/list-migrate/pkg/migrate/source/sqlitefile"
	"github.com/baderkha/list-migrate/pkg/migrate/state"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()

	jobPath := conditional.Ternary(len(os.Args) > 1, os.Args[len(os.Args)-1], "job.json")
	b, err := os.ReadFile(jobPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", jobPath).Msg("could not read job file")
	}
	var cfg config.Config[sourcecfg.SQLite, targetcfg.S3List]
	if err := json.Unmarshal(b, &cfg); err != nil {
		log.Fatal().Err(err).Msg("could not parse job file")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid job configuration")
	}

	stateMgr, err := state.NewSqliteGormManager(conditional.Ternary(os.Getenv("STATE_DB") != "", os.Getenv("STATE_DB"), "migration_state.sqlite"))
	if err != nil {
		log.Fatal().Err(err).Msg("could not open state db")
	}

	migrator, err := migrate.New(
		sqlitefile.New(cfg.SourceConfig),
		s3list.New(cfg.Target, cfg.Settings.SkipExisting),
		cfg.Settings,
		migrate.WithStateManager(stateMgr),
		migrate.WithLogger(log),
		migrate.WithMaxConcurrency(cfg.MaxConcurrency),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("could not build migration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		migrator.GetStateManager().OnShutDownEv()
	}()

	startTime := time.Now()
	res, err := migrator.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("migration aborted")
	}
	log.Debug().Msg(spew.Sdump(res))
	log.Info().
		Str("run_id", res.RunID).
		Bool("success", res.Success()).
		Int("tables", len(res.Tables)).
		Int("rows_loaded", res.RowsLoaded()).
		Dur("took", time.Since(startTime)).
		Msg("migration finished")
	if !res.Success() {
		os.Exit(1)
	}
}
