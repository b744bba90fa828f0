package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/calc"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/repository"
)

// DataLoaderService centralizes the loading of everything a portfolio
// calculation needs: the portfolio, its live transactions, the split table,
// and the ledgers that funded its purchases.
type DataLoaderService struct {
	portfolioRepo   *repository.PortfolioRepository
	transactionRepo *repository.TransactionRepository
	splitRepo       *repository.SplitRepository
	ledgerRepo      *repository.LedgerRepository
}

// NewDataLoaderService creates a new DataLoaderService with the provided dependencies.
func NewDataLoaderService(
	portfolioRepo *repository.PortfolioRepository,
	transactionRepo *repository.TransactionRepository,
	splitRepo *repository.SplitRepository,
	ledgerRepo *repository.LedgerRepository,
) *DataLoaderService {
	return &DataLoaderService{
		portfolioRepo:   portfolioRepo,
		transactionRepo: transactionRepo,
		splitRepo:       splitRepo,
		ledgerRepo:      ledgerRepo,
	}
}

// PortfolioData contains all data needed for portfolio calculations.
//
// Fields:
//   - Portfolio: the portfolio row
//   - Transactions: live transactions ordered by date and creation sequence
//   - Splits: every known split
//   - Ledgers: ledgers referenced by a transaction, keyed by ledger ID
type PortfolioData struct {
	Portfolio    model.Portfolio
	Transactions []model.Transaction
	Splits       []model.StockSplit
	Ledgers      map[string]model.CurrencyLedgerWithTransactions
}

// Load reads the portfolio and everything its calculations depend on.
// Returns apperrors.ErrPortfolioNotFound for an unknown portfolio.
func (s *DataLoaderService) Load(ctx context.Context, portfolioID string) (*PortfolioData, error) {
	portfolio, err := s.portfolioRepo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactionRepo.GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	splits, err := s.splitRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ledgers := make(map[string]model.CurrencyLedgerWithTransactions)
	ledgerIDs := make([]string, 0)
	if portfolio.BoundLedgerID != "" {
		ledgerIDs = append(ledgerIDs, portfolio.BoundLedgerID)
	}
	for _, t := range transactions {
		if t.CurrencyLedgerID != "" {
			ledgerIDs = append(ledgerIDs, t.CurrencyLedgerID)
		}
	}
	for _, id := range ledgerIDs {
		if _, ok := ledgers[id]; ok {
			continue
		}
		ledger, err := s.ledgerRepo.GetWithTransactions(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger %s: %w", id, err)
		}
		ledgers[id] = ledger
	}

	return &PortfolioData{
		Portfolio:    portfolio,
		Transactions: transactions,
		Splits:       splits,
		Ledgers:      ledgers,
	}, nil
}

// TransactionsAsOf returns the transactions dated on or before asOf,
// restated in post-split shares as of asOf and with home rates resolved.
//
// A transaction without an explicit rate takes the rate 1 when its source
// currency is the home currency, or otherwise the average cost of its
// funding ledger (or the portfolio's bound ledger) on the transaction date.
// Anything else stays Unknown.
func (d *PortfolioData) TransactionsAsOf(asOf time.Time) ([]model.Transaction, error) {
	cutoff := slices.IndexFunc(d.Transactions, func(t model.Transaction) bool { return t.Date.After(asOf) })
	if cutoff < 0 {
		cutoff = len(d.Transactions)
	}
	selected := calc.AdjustAll(d.Transactions[:cutoff], d.Splits, asOf)

	for i, t := range selected {
		if t.ExchangeRate.IsKnown() {
			continue
		}
		rate, err := d.impliedRate(t)
		if err != nil {
			return nil, err
		}
		selected[i].ExchangeRate = rate
	}
	return selected, nil
}

func (d *PortfolioData) impliedRate(t model.Transaction) (model.Optional, error) {
	if t.SourceCurrency() == d.Portfolio.HomeCurrency {
		return model.Known(decimal.NewFromInt(1)), nil
	}
	ledgerID := t.CurrencyLedgerID
	if ledgerID == "" {
		ledgerID = d.Portfolio.BoundLedgerID
	}
	ledger, ok := d.Ledgers[ledgerID]
	if !ok || ledger.Ledger.Currency != t.SourceCurrency() || ledger.Ledger.HomeCurrency != d.Portfolio.HomeCurrency {
		return model.Unknown(), nil
	}
	return calc.AverageCostAt(ledger.Transactions, t.Date)
}

// TransactionDates returns the distinct transaction dates in [from, to],
// ascending. Zero bounds are open.
func (d *PortfolioData) TransactionDates(from, to time.Time) []time.Time {
	var dates []time.Time
	for _, t := range d.Transactions {
		if (!from.IsZero() && t.Date.Before(from)) || (!to.IsZero() && t.Date.After(to)) {
			continue
		}
		if len(dates) == 0 || !dates[len(dates)-1].Equal(t.Date) {
			dates = append(dates, t.Date)
		}
	}
	return dates
}

// TransactionsOn returns the transactions dated exactly on day.
func (d *PortfolioData) TransactionsOn(day time.Time) []model.Transaction {
	var out []model.Transaction
	for _, t := range d.Transactions {
		if t.Date.Equal(day) {
			out = append(out, t)
		}
	}
	return out
}

// EarliestDate is the date of the first transaction, or zero.
func (d *PortfolioData) EarliestDate() time.Time {
	if len(d.Transactions) == 0 {
		return time.Time{}
	}
	return d.Transactions[0].Date
}

// PositionsAsOf folds the transactions up to asOf into positions.
func (d *PortfolioData) PositionsAsOf(asOf time.Time) ([]model.Position, error) {
	txs, err := d.TransactionsAsOf(asOf)
	if err != nil {
		return nil, err
	}
	return calc.CalculatePositions(txs, calc.PositionOptions{AsOf: asOf})
}
