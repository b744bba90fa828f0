package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
)

// TransactionRepository provides data access methods for the transaction table.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, portfolio_id, date, symbol, market, type, quantity, unit_price, fees,
	exchange_rate, currency_ledger_id, is_deleted, created_at
`

// GetByPortfolio retrieves every live transaction of a portfolio.
//
// Soft-deleted rows are excluded. Rows are ordered by date, then by creation
// sequence (created_at, then insertion order), which is the order every
// fold over the stream relies on.
func (r *TransactionRepository) GetByPortfolio(ctx context.Context, portfolioID string) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM "transaction"
		WHERE portfolio_id = ?
		AND is_deleted = 0
		ORDER BY date ASC, created_at ASC, rowid ASC
	`

	rows, err := r.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

// GetByID retrieves a transaction, including soft-deleted ones.
// Returns apperrors.ErrTransactionNotFound when no row matches.
func (r *TransactionRepository) GetByID(ctx context.Context, transactionID string) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction" WHERE id = ?`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// Insert stores a new transaction.
func (r *TransactionRepository) Insert(ctx context.Context, t model.Transaction) error {
	query := `
		INSERT INTO "transaction" (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.PortfolioID,
		formatDate(t.Date),
		t.Symbol,
		string(t.Market),
		string(t.Type),
		t.Quantity,
		t.UnitPrice,
		t.Fees,
		t.ExchangeRate.Null(),
		nullString(t.CurrencyLedgerID),
		t.IsDeleted,
		formatTimestamp(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// SoftDelete flags a transaction as deleted.
// Returns apperrors.ErrTransactionNotFound when no live row matches.
func (r *TransactionRepository) SoftDelete(ctx context.Context, transactionID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE "transaction" SET is_deleted = 1 WHERE id = ? AND is_deleted = 0`,
		transactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var dateStr, createdAtStr, market, typ string
	var rate decimal.NullDecimal
	var ledgerID sql.NullString

	err := row.Scan(
		&t.ID,
		&t.PortfolioID,
		&dateStr,
		&t.Symbol,
		&market,
		&typ,
		&t.Quantity,
		&t.UnitPrice,
		&t.Fees,
		&rate,
		&ledgerID,
		&t.IsDeleted,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction table results: %w", err)
	}

	t.Market = model.Market(market)
	t.Type = model.TransactionType(typ)
	t.ExchangeRate = model.OptionalFromNull(rate)
	t.CurrencyLedgerID = ledgerID.String

	t.Date, err = ParseTime(dateStr)
	if err != nil {
		return t, fmt.Errorf("failed to parse date: %w", err)
	}
	t.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return t, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return t, nil
}
