package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-performance/internal/calc"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/repository"
	"github.com/ndewijer/portfolio-performance/internal/validation"
)

// TransactionService handles transaction-related business logic operations.
// It is the only writer of the transaction stream: every change is checked
// against the whole stream and drops the snapshots it makes stale.
type TransactionService struct {
	loader          *DataLoaderService
	transactionRepo *repository.TransactionRepository
	snapshots       *SnapshotService
	now             func() time.Time
	log             zerolog.Logger
}

// NewTransactionService creates a new TransactionService with the provided dependencies.
func NewTransactionService(
	loader *DataLoaderService,
	transactionRepo *repository.TransactionRepository,
	snapshots *SnapshotService,
	log zerolog.Logger,
) *TransactionService {
	return &TransactionService{
		loader:          loader,
		transactionRepo: transactionRepo,
		snapshots:       snapshots,
		now:             time.Now,
		log:             log.With().Str("component", "transaction_service").Logger(),
	}
}

// Create validates and persists a new transaction.
//
// The new transaction is placed in the portfolio's stream after every
// existing transaction of the same date. The stream is then split-adjusted
// and checked so that no sell, including later ones, exceeds the shares
// held at that point.
//
// Parameters:
//   - ctx: Context for the operation
//   - params: Validated transaction fields; ID and CreatedAt are assigned here
//
// Returns the stored transaction, apperrors.ErrPortfolioNotFound,
// apperrors.ErrInsufficientShares, or a wrapped storage error.
func (s *TransactionService) Create(ctx context.Context, params model.TransactionParams) (model.Transaction, error) {
	data, err := s.loader.Load(ctx, params.PortfolioID)
	if err != nil {
		return model.Transaction{}, err
	}

	params.ID = uuid.New().String()
	params.CreatedAt = s.now().UTC()
	tx, err := model.NewTransaction(params)
	if err != nil {
		return model.Transaction{}, err
	}

	stream := append(append([]model.Transaction{}, data.Transactions...), tx)
	calc.SortTransactions(stream)
	if err := validateStream(stream, data.Splits); err != nil {
		return model.Transaction{}, err
	}

	if err := s.transactionRepo.Insert(ctx, tx); err != nil {
		return model.Transaction{}, err
	}
	if err := s.snapshots.InvalidateFrom(ctx, tx.PortfolioID, tx.Date); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to invalidate snapshots: %w", err)
	}

	s.log.Info().
		Str("portfolio_id", tx.PortfolioID).
		Str("transaction_id", tx.ID).
		Str("symbol", tx.Key().String()).
		Str("type", string(tx.Type)).
		Str("date", tx.Date.Format(model.DateLayout)).
		Msg("transaction created")

	return tx, nil
}

// Delete soft-deletes a transaction. Removing a buy that later sells
// depend on is rejected with apperrors.ErrInsufficientShares.
func (s *TransactionService) Delete(ctx context.Context, transactionID string) error {
	tx, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}

	data, err := s.loader.Load(ctx, tx.PortfolioID)
	if err != nil {
		return err
	}

	stream := make([]model.Transaction, 0, len(data.Transactions))
	for _, t := range data.Transactions {
		if t.ID != tx.ID {
			stream = append(stream, t)
		}
	}
	if err := validateStream(stream, data.Splits); err != nil {
		return err
	}

	if err := s.transactionRepo.SoftDelete(ctx, transactionID); err != nil {
		return err
	}
	if err := s.snapshots.InvalidateFrom(ctx, tx.PortfolioID, tx.Date); err != nil {
		return fmt.Errorf("failed to invalidate snapshots: %w", err)
	}

	s.log.Info().
		Str("portfolio_id", tx.PortfolioID).
		Str("transaction_id", tx.ID).
		Msg("transaction deleted")
	return nil
}

// validateStream restates the ordered stream in shares as of its last date.
func validateStream(stream []model.Transaction, splits []model.StockSplit) error {
	if len(stream) == 0 {
		return nil
	}
	asOf := stream[len(stream)-1].Date
	return validation.ValidateTransactionStream(calc.AdjustAll(stream, splits, asOf))
}
