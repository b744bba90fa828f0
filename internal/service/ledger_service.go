package service

import (
	"context"
	"time"

	"github.com/ndewijer/portfolio-performance/internal/calc"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/repository"
)

// LedgerSummary is the replayed state of a currency ledger.
type LedgerSummary struct {
	Ledger           model.CurrencyLedger `json:"ledger"`
	AsOf             time.Time            `json:"asOf"`
	TransactionCount int                  `json:"transactionCount"`
	State            calc.LedgerState     `json:"state"`
	Display          LedgerDisplay        `json:"display"`
}

// LedgerDisplay carries the summary amounts formatted for their currency.
type LedgerDisplay struct {
	Balance       string `json:"balance"`
	TotalCostHome string `json:"totalCostHome"`
	RealizedPnL   string `json:"realizedPnl"`
}

// LedgerService exposes currency ledger accounting.
type LedgerService struct {
	ledgerRepo *repository.LedgerRepository
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo *repository.LedgerRepository) *LedgerService {
	return &LedgerService{ledgerRepo: ledgerRepo}
}

// GetSummary replays the ledger's movements dated on or before asOf.
//
// Returns apperrors.ErrLedgerNotFound for an unknown ledger and
// apperrors.ErrInsufficientBalance if the stored history overdraws.
func (s *LedgerService) GetSummary(ctx context.Context, ledgerID string, asOf time.Time) (LedgerSummary, error) {
	ledger, err := s.ledgerRepo.GetWithTransactions(ctx, ledgerID)
	if err != nil {
		return LedgerSummary{}, err
	}

	asOf = model.Day(asOf)
	state, err := calc.ReplayLedger(ledger.Transactions, asOf)
	if err != nil {
		return LedgerSummary{}, err
	}

	count := 0
	for _, t := range ledger.Transactions {
		if !t.Date.After(asOf) {
			count++
		}
	}

	return LedgerSummary{
		Ledger:           ledger.Ledger,
		AsOf:             asOf,
		TransactionCount: count,
		State:            state,
		Display: LedgerDisplay{
			Balance:       model.FormatMoney(state.Balance, ledger.Ledger.Currency),
			TotalCostHome: model.FormatMoney(state.TotalCostHome, ledger.Ledger.HomeCurrency),
			RealizedPnL:   model.FormatMoney(state.RealizedPnL, ledger.Ledger.HomeCurrency),
		},
	}, nil
}
