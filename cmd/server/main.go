package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndewijer/portfolio-performance/internal/api"
	"github.com/ndewijer/portfolio-performance/internal/config"
	"github.com/ndewijer/portfolio-performance/internal/database"
	"github.com/ndewijer/portfolio-performance/internal/logger"
	"github.com/ndewijer/portfolio-performance/internal/repository"
	"github.com/ndewijer/portfolio-performance/internal/scheduler"
	"github.com/ndewijer/portfolio-performance/internal/service"
	"github.com/ndewijer/portfolio-performance/internal/version"
	"github.com/ndewijer/portfolio-performance/internal/yahoo"
)

const backfillTimeout = 30 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet; fall back to defaults.
		l := logger.New(logger.Config{})
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log.Info().Str("version", version.Version).Msg("Starting portfolio performance server")

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Str("path", cfg.Database.Path).Msg("Connected to database")

	// Create repositories
	portfolioRepo := repository.NewPortfolioRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	splitRepo := repository.NewSplitRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	marketDataRepo := repository.NewMarketDataRepository(db)

	// Market data
	provider := yahoo.NewProvider(yahoo.NewFinanceClient(cfg.Yahoo.BaseURL, cfg.Yahoo.Timeout))
	priceCache := service.NewPriceCache(marketDataRepo, provider, log, provider)

	// Create services
	valuator := service.NewValuator(priceCache)
	loader := service.NewDataLoaderService(portfolioRepo, transactionRepo, splitRepo, ledgerRepo)
	snapshotService := service.NewSnapshotService(loader, valuator, snapshotRepo, log)

	services := api.Services{
		System:      service.NewSystemService(db),
		Performance: service.NewPerformanceService(loader, valuator, snapshotService),
		Snapshots:   snapshotService,
		Transaction: service.NewTransactionService(loader, transactionRepo, snapshotService, log),
		Ledger:      service.NewLedgerService(ledgerRepo),
	}

	// Background snapshot backfill
	sched := scheduler.New(log)
	if cfg.Scheduler.BackfillSchedule != "" {
		job := scheduler.NewBackfillJob(portfolioRepo, snapshotService, backfillTimeout, log)
		if err := sched.AddJob(cfg.Scheduler.BackfillSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Scheduler.BackfillSchedule).Msg("Invalid backfill schedule")
		}
	}
	sched.Start()

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(services, cfg, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sched.Stop()

	log.Info().Msg("Server exited")
}
