// Package main runs a single settlement cycle against live market data
// and exits. Intended for cron-driven deployments and manual re-runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"lossmine/internal/config"
	"lossmine/internal/cycle"
	"lossmine/internal/providers"
	chstore "lossmine/internal/storage/clickhouse"
	"lossmine/internal/storage/migrations"
	pgstore "lossmine/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	settleCycle := flag.Int64("settle", 0, "Re-settle an existing snapshot instead of running a new cycle")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	ctx := context.Background()

	if cfg.Storage.PostgresDSN == "" {
		logger.Fatal().Msg("postgres_dsn is required")
	}
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("postgres migrations")
	}

	stores := cycle.Stores{
		Holders:           pgstore.NewHolderStore(pool),
		Acquisitions:      pgstore.NewAcquisitionStore(pool),
		Snapshots:         pgstore.NewSnapshotStore(pool),
		Payouts:           pgstore.NewPayoutStore(pool),
		Disqualifications: pgstore.NewDisqualificationStore(pool),
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("clickhouse migrations")
		}
		defer conn.Close()
		stores.History = chstore.NewLeaderboardHistoryStore(conn)
	}

	if cfg.Providers.IndexerURL == "" {
		logger.Fatal().Msg("indexer_url is required")
	}
	client := providers.NewHTTPClient(cfg.Providers.IndexerURL)
	market := providers.NewBreakerSource(client, providers.DefaultBreakerConfig("indexer"))
	fetcher := providers.NewEventFetcher(client,
		providers.WithWorkers(cfg.Providers.FetchWorkers),
		providers.WithRateLimit(cfg.Providers.RequestsPerS, cfg.Providers.FetchWorkers))

	params, err := cfg.ContestParams()
	if err != nil {
		logger.Fatal().Err(err).Msg("contest params")
	}

	runner, err := cycle.New(cycle.Options{
		Stores:  stores,
		Market:  market,
		Params:  params,
		Fetcher: fetcher,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create runner")
	}

	if *settleCycle > 0 {
		records, err := runner.Settle(ctx, *settleCycle)
		if err != nil {
			logger.Fatal().Err(err).Int64("cycle", *settleCycle).Msg("settle failed")
		}
		logger.Info().Int64("cycle", *settleCycle).Int("payouts", len(records)).Msg("cycle settled")
		return
	}

	result, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("cycle failed")
	}

	event := logger.Info().
		Int64("cycle", result.Cycle).
		Int("holders", result.Snapshot.TotalHolders).
		Int("eligible", result.Snapshot.EligibleCount).
		Int("payouts", len(result.Payouts))
	if result.Skipped {
		event.Msg("cycle skipped, pool carries over")
		return
	}
	event.Msg("cycle settled")
}
