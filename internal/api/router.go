package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-performance/internal/api/handlers"
	custommiddleware "github.com/ndewijer/portfolio-performance/internal/api/middleware"
	"github.com/ndewijer/portfolio-performance/internal/config"
	"github.com/ndewijer/portfolio-performance/internal/service"
)

// Services holds the services the HTTP layer delegates to.
type Services struct {
	System      *service.SystemService
	Performance *service.PerformanceService
	Snapshots   *service.SnapshotService
	Transaction *service.TransactionService
	Ledger      *service.LedgerService
}

// NewRouter creates and configures the HTTP router
func NewRouter(services Services, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(services.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/portfolio/{uuid}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateUUIDMiddleware)

			performanceHandler := handlers.NewPerformanceHandler(services.Performance)
			r.Get("/positions", performanceHandler.Positions)
			r.Get("/xirr", performanceHandler.XIRR)
			r.Get("/twr", performanceHandler.TWR)
			r.Get("/networth", performanceHandler.NetWorth)

			snapshotHandler := handlers.NewSnapshotHandler(services.Snapshots)
			r.Post("/snapshots/{date}", snapshotHandler.EnsureForDate)
		})

		r.Route("/transaction", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(services.Transaction)
			r.Post("/", transactionHandler.CreateTransaction)
			r.With(custommiddleware.ValidateUUIDMiddleware).Delete("/{uuid}", transactionHandler.DeleteTransaction)
		})

		r.Route("/ledger/{uuid}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateUUIDMiddleware)

			ledgerHandler := handlers.NewLedgerHandler(services.Ledger)
			r.Get("/summary", ledgerHandler.Summary)
		})
	})

	return r
}
