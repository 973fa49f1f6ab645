package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uhyunpark/papertrade/params"
	"github.com/uhyunpark/papertrade/pkg/api"
	"github.com/uhyunpark/papertrade/pkg/feeder"
	"github.com/uhyunpark/papertrade/pkg/ledger"
	"github.com/uhyunpark/papertrade/pkg/market"
	"github.com/uhyunpark/papertrade/pkg/metrics"
	"github.com/uhyunpark/papertrade/pkg/portfolio"
	"github.com/uhyunpark/papertrade/pkg/storage"
	"github.com/uhyunpark/papertrade/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Server.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Server.LogFile)

	clock := util.RealClock{}

	// ---- Simulation clock ----
	start := cfg.Game.SimulationStart
	if start.IsZero() {
		start = clock.Now().UTC()
	}
	epoch := market.Epoch{Start: start}

	// ---- Journal ----
	journal, err := storage.OpenPebbleJournal(cfg.Storage.JournalDir, sugar)
	if err != nil {
		sugar.Fatalw("journal_open_failed", "dir", cfg.Storage.JournalDir, "err", err)
	}
	defer journal.Close()
	if cfg.Storage.JournalDir == "" {
		sugar.Infow("journal_in_memory")
	} else {
		sugar.Infow("journal_opened", "dir", cfg.Storage.JournalDir)
	}

	// ---- Game state ----
	catalog := market.DefaultCatalog()
	hub := api.NewHub(sugar)
	metric := metrics.New()
	registry := ledger.NewRegistry(
		cfg.Game.StartingCash,
		storage.NewRecorder(journal, clock, sugar),
		hub,
		metric,
	)

	engine, err := portfolio.NewEngine(catalog, cfg.Game.PortfolioLookback, cfg.Game.ReplayCacheSize)
	if err != nil {
		sugar.Fatalw("replay_engine_init_failed", "err", err)
	}
	metric.WatchEngine(engine)

	sugar.Infow("game_config",
		"securities", catalog.Tickers(),
		"starting_cash", cfg.Game.StartingCash.String(),
		"portfolio_lookback", cfg.Game.PortfolioLookback,
		"price_history_lookback", cfg.Game.PriceHistoryLookback,
		"replay_cache_size", cfg.Game.ReplayCacheSize,
		"simulation_start", epoch.Start.Format(time.RFC3339))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Demo feeder (optional) ----
	// Enable with: ENABLE_FEEDER=true FEEDER_BOTS=3 FEEDER_INTERVAL_MS=2000
	if cfg.Feeder.Enabled {
		f, err := feeder.New(feeder.Config{
			Bots:     cfg.Feeder.Bots,
			Interval: cfg.Feeder.Interval,
			Seed:     cfg.Feeder.Seed,
		}, registry, catalog.Tickers(), epoch, clock, sugar)
		if err != nil {
			sugar.Fatalw("feeder_init_failed", "err", err)
		}
		cancelFeeder := feeder.Start(ctx, f)
		defer cancelFeeder()
	} else {
		sugar.Info("feeder_disabled")
	}

	// ---- API Server ----
	apiServer := api.NewServer(api.Options{
		Registry:        registry,
		Catalog:         catalog,
		Engine:          engine,
		Journal:         journal,
		Hub:             hub,
		Epoch:           epoch,
		Clock:           clock,
		HistoryLookback: cfg.Game.PriceHistoryLookback,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Metrics:         metric,
		Log:             sugar,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start(ctx, cfg.Server.Addr)
	}()

	// Progress logging loop
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			if err != nil {
				sugar.Errorw("api_server_failed", "err", err)
			}
			sugar.Infow("shutdown_complete")
			return
		case <-ticker.C:
			stats := engine.Stats()
			sugar.Infow("game_status",
				"t", epoch.StepAt(clock.Now()),
				"players", registry.Count(),
				"ws_clients", hub.ClientCount(),
				"replay_hits", stats.Hits,
				"replay_misses", stats.Misses,
				"checkpoints", engine.Checkpoints())
		}
	}
}
