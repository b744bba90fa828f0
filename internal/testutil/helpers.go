package testutil

import (
	"database/sql"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-performance/internal/repository"
	"github.com/ndewijer/portfolio-performance/internal/service"
)

// Services bundles every service wired against one test database and one
// fake provider.
type Services struct {
	Portfolios  *repository.PortfolioRepository
	Cache       *service.PriceCache
	Valuator    *service.Valuator
	Loader      *service.DataLoaderService
	Snapshots   *service.SnapshotService
	Performance *service.PerformanceService
	Transaction *service.TransactionService
	Ledger      *service.LedgerService
	System      *service.SystemService
}

// Today is the fixed "current date" the test services run at.
var Today = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

// NopLogger discards all output.
func NopLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// NewTestServices wires the full service graph over db. provider answers
// both historical and live lookups; the clock is pinned to Today.
func NewTestServices(t *testing.T, db *sql.DB, provider *FakeProvider) *Services {
	t.Helper()

	log := NopLogger()

	portfolioRepo := repository.NewPortfolioRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	splitRepo := repository.NewSplitRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	marketDataRepo := repository.NewMarketDataRepository(db)

	cache := service.NewPriceCache(marketDataRepo, provider, log, provider).
		WithClock(func() time.Time { return Today })
	valuator := service.NewValuator(cache)
	loader := service.NewDataLoaderService(portfolioRepo, transactionRepo, splitRepo, ledgerRepo)
	snapshots := service.NewSnapshotService(loader, valuator, snapshotRepo, log)

	return &Services{
		Portfolios:  portfolioRepo,
		Cache:       cache,
		Valuator:    valuator,
		Loader:      loader,
		Snapshots:   snapshots,
		Performance: service.NewPerformanceService(loader, valuator, snapshots),
		Transaction: service.NewTransactionService(loader, transactionRepo, snapshots, log),
		Ledger:      service.NewLedgerService(ledgerRepo),
		System:      service.NewSystemService(db),
	}
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakePortfolioName generates a unique portfolio name for testing.
//
// Example usage:
//
//	name := testutil.MakePortfolioName("MyPortfolio")
//	// Returns: "MyPortfolio ABC123"
func MakePortfolioName(base string) string {
	if base == "" {
		base = "Portfolio"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
