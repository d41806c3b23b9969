// Package main runs the contest service: a scheduled settlement loop
// over live market data, plus HTTP surfaces for the leaderboard,
// status and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lossmine/internal/config"
	"lossmine/internal/cycle"
	"lossmine/internal/observability"
	"lossmine/internal/providers"
	"lossmine/internal/reporting"
	chstore "lossmine/internal/storage/clickhouse"
	"lossmine/internal/storage/memory"
	"lossmine/internal/storage/migrations"
	pgstore "lossmine/internal/storage/postgres"
)

// Server holds the running service.
type Server struct {
	cfg    *config.Config
	stores cycle.Stores
	runner *cycle.Runner
	gen    *reporting.Generator
	log    zerolog.Logger

	mu           sync.Mutex
	started      time.Time
	lastCycleRun time.Time
	cycleRunning bool
	cycleRuns    int
	lastCycle    int64
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	runOnce := flag.Bool("once", false, "Run one settlement cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	runner, watcher, err := createRunner(ctx, cfg, stores, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create runner")
	}
	if watcher != nil {
		defer watcher.Close()
	}

	server := &Server{
		cfg:     cfg,
		stores:  stores,
		runner:  runner,
		gen:     reporting.NewGenerator(stores.Snapshots, stores.Payouts),
		log:     logger,
		started: time.Now(),
	}

	if *runOnce {
		if err := server.runCycle(ctx); err != nil {
			logger.Fatal().Err(err).Msg("cycle failed")
		}
		return
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	go server.startHTTPServer(cfg.Server.ListenAddr)
	go server.startMetricsServer(cfg.Server.MetricsAddr)

	if err := server.runScheduler(ctx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("scheduler stopped")
	}
	logger.Info().Msg("shutdown complete")
}

// newLogger builds the service logger from config.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

// createStores wires the persistence backends. The returned cleanup
// closes every opened connection.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (cycle.Stores, func(), error) {
	if useMemory {
		stores := cycle.Stores{
			Holders:           memory.NewHolderStore(),
			Acquisitions:      memory.NewAcquisitionStore(),
			Snapshots:         memory.NewSnapshotStore(),
			Payouts:           memory.NewPayoutStore(),
			Disqualifications: memory.NewDisqualificationStore(),
		}
		return stores, func() {}, nil
	}

	if cfg.Storage.PostgresDSN == "" {
		return cycle.Stores{}, nil, fmt.Errorf("postgres_dsn is required (or pass -use-memory)")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return cycle.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return cycle.Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := cycle.Stores{
		Holders:           pgstore.NewHolderStore(pool),
		Acquisitions:      pgstore.NewAcquisitionStore(pool),
		Snapshots:         pgstore.NewSnapshotStore(pool),
		Payouts:           pgstore.NewPayoutStore(pool),
		Disqualifications: pgstore.NewDisqualificationStore(pool),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse history is optional
	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return cycle.Stores{}, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.History = chstore.NewLeaderboardHistoryStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// createRunner wires market sources and the settlement runner. The
// returned watcher, when non-nil, must be closed on shutdown.
func createRunner(ctx context.Context, cfg *config.Config, stores cycle.Stores, logger zerolog.Logger) (*cycle.Runner, *providers.PriceWatcher, error) {
	if cfg.Providers.IndexerURL == "" {
		return nil, nil, fmt.Errorf("indexer_url is required")
	}

	client := providers.NewHTTPClient(cfg.Providers.IndexerURL)

	var market providers.MarketSource = providers.NewBreakerSource(client,
		providers.DefaultBreakerConfig("indexer"))

	// When a streaming feed is configured, prefer its cached price and
	// keep the HTTP source for pool and holder reads.
	var watcher *providers.PriceWatcher
	if cfg.Providers.PriceFeedURL != "" {
		w, err := providers.NewPriceWatcher(ctx, cfg.Providers.PriceFeedURL, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("connect price feed: %w", err)
		}
		watcher = w
		market = &watchedMarket{MarketSource: market, watcher: w}
	}

	fetcher := providers.NewEventFetcher(client,
		providers.WithWorkers(cfg.Providers.FetchWorkers),
		providers.WithRateLimit(cfg.Providers.RequestsPerS, cfg.Providers.FetchWorkers))

	params, err := cfg.ContestParams()
	if err != nil {
		return nil, nil, err
	}

	runner, err := cycle.New(cycle.Options{
		Stores:  stores,
		Market:  market,
		Params:  params,
		Fetcher: fetcher,
		Logger:  logger.With().Str("component", "cycle").Logger(),
	})
	if err != nil {
		return nil, nil, err
	}
	return runner, watcher, nil
}

// watchedMarket reads prices from the streaming cache, falling back to
// the HTTP source when the cache is empty or stale.
type watchedMarket struct {
	providers.MarketSource
	watcher *providers.PriceWatcher
}

func (m *watchedMarket) TokenPrice(ctx context.Context) (decimal.Decimal, error) {
	price, err := m.watcher.TokenPrice(ctx)
	if err == nil {
		return price, nil
	}
	return m.MarketSource.TokenPrice(ctx)
}

// runScheduler settles a cycle on a fixed interval, starting immediately.
func (s *Server) runScheduler(ctx context.Context) error {
	s.log.Info().Dur("interval", s.cfg.Contest.CycleInterval).Msg("scheduler started")

	if err := s.runCycle(ctx); err != nil {
		s.log.Error().Err(err).Msg("cycle failed")
	}

	ticker := time.NewTicker(s.cfg.Contest.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.log.Error().Err(err).Msg("cycle failed")
			}
		}
	}
}

// runCycle executes one settlement cycle and records metrics.
func (s *Server) runCycle(ctx context.Context) error {
	s.mu.Lock()
	if s.cycleRunning {
		s.mu.Unlock()
		s.log.Warn().Msg("cycle already running, skipping tick")
		return nil
	}
	s.cycleRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cycleRunning = false
		s.lastCycleRun = time.Now()
		s.cycleRuns++
		s.mu.Unlock()
	}()

	start := time.Now()
	result, err := s.runner.Run(ctx)
	if err != nil {
		observability.RecordCycle("error", time.Since(start).Seconds(), 0, 0)
		return err
	}

	status := "settled"
	if result.Skipped {
		status = "skipped"
	}
	observability.RecordCycle(status, time.Since(start).Seconds(),
		result.Snapshot.TotalHolders, result.Snapshot.EligibleCount)
	observability.UpdatePoolBalance(result.Snapshot.PoolBalance.InexactFloat64())
	observability.RecordRejections(result.Rejections)
	for _, p := range result.Payouts {
		observability.RecordPayout(p.Amount.InexactFloat64())
	}
	observability.MarkCycleSuccess(float64(time.Now().Unix()))

	s.mu.Lock()
	s.lastCycle = result.Cycle
	s.mu.Unlock()
	return nil
}

// startHTTPServer serves the leaderboard and status endpoints.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/leaderboard.md", s.handleLeaderboardMarkdown)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/status", s.handleStatus)

	s.log.Info().Str("addr", addr).Msg("http server started")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.log.Error().Err(err).Msg("http server stopped")
	}
}

// startMetricsServer serves Prometheus metrics on a separate port.
func (s *Server) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	s.log.Info().Str("addr", addr).Msg("metrics server started")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.log.Error().Err(err).Msg("metrics server stopped")
	}
}

// handleLeaderboard returns a cycle report as JSON. The cycle query
// parameter selects a past cycle; default is the latest.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	report, err := s.loadReport(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// handleLeaderboardMarkdown returns the rendered Markdown report.
func (s *Server) handleLeaderboardMarkdown(w http.ResponseWriter, r *http.Request) {
	report, err := s.loadReport(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

func (s *Server) loadReport(r *http.Request) (*reporting.Report, error) {
	if raw := r.URL.Query().Get("cycle"); raw != "" {
		cycleNum, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cycle %q", raw)
		}
		return s.gen.Generate(r.Context(), cycleNum)
	}
	return s.gen.GenerateLatest(r.Context())
}

// HistoryResponse is the JSON response for the /history endpoint.
type HistoryResponse struct {
	Wallet string       `json:"wallet"`
	Rows   []HistoryRow `json:"rows"`
}

// HistoryRow is one archived leaderboard placement.
type HistoryRow struct {
	Rank        int    `json:"rank"`
	Balance     string `json:"balance"`
	CostBasis   string `json:"cost_basis,omitempty"`
	DrawdownPct string `json:"drawdown_pct"`
	LossUsd     string `json:"loss_usd"`
}

// handleHistory returns a wallet's archived leaderboard rows, newest
// cycle first. Served from the ClickHouse archive when configured.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.stores.History == nil {
		http.Error(w, "history storage not configured", http.StatusNotFound)
		return
	}

	walletAddr := r.URL.Query().Get("wallet")
	if walletAddr == "" {
		http.Error(w, "wallet query parameter is required", http.StatusBadRequest)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, fmt.Sprintf("invalid limit %q", raw), http.StatusBadRequest)
			return
		}
		limit = n
	}

	rows, err := s.stores.History.TopLosers(r.Context(), walletAddr, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := HistoryResponse{Wallet: walletAddr, Rows: make([]HistoryRow, 0, len(rows))}
	for _, row := range rows {
		hr := HistoryRow{
			Rank:        row.Rank,
			Balance:     row.Balance.String(),
			DrawdownPct: row.DrawdownPct.StringFixed(4),
			LossUsd:     row.LossUsd.StringFixed(2),
		}
		if row.CostBasis != nil {
			hr.CostBasis = row.CostBasis.String()
		}
		resp.Rows = append(resp.Rows, hr)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	LastCycle    int64     `json:"last_cycle"`
	LastCycleRun time.Time `json:"last_cycle_run,omitempty"`
	CycleRuns    int       `json:"cycle_runs"`
	CycleRunning bool      `json:"cycle_running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		LastCycle:    s.lastCycle,
		LastCycleRun: s.lastCycleRun,
		CycleRuns:    s.cycleRuns,
		CycleRunning: s.cycleRunning,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
