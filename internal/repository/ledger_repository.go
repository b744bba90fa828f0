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

// LedgerRepository provides data access methods for the currency_ledger and
// currency_transaction tables.
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a new LedgerRepository with the provided database connection.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetWithTransactions loads a ledger with all of its movements in
// chronological order (date, then creation sequence).
//
// Returns apperrors.ErrLedgerNotFound when the ledger does not exist.
func (r *LedgerRepository) GetWithTransactions(ctx context.Context, ledgerID string) (model.CurrencyLedgerWithTransactions, error) {
	var ledger model.CurrencyLedger
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, currency, home_currency FROM currency_ledger WHERE id = ?`,
		ledgerID,
	).Scan(&ledger.ID, &ledger.Name, &ledger.Currency, &ledger.HomeCurrency)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CurrencyLedgerWithTransactions{}, apperrors.ErrLedgerNotFound
	}
	if err != nil {
		return model.CurrencyLedgerWithTransactions{}, fmt.Errorf("failed to query currency_ledger: %w", err)
	}

	query := `
		SELECT id, ledger_id, date, type, foreign_amount, home_amount, exchange_rate, created_at
		FROM currency_transaction
		WHERE ledger_id = ?
		ORDER BY date ASC, created_at ASC, rowid ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ledgerID)
	if err != nil {
		return model.CurrencyLedgerWithTransactions{}, fmt.Errorf("failed to query currency_transaction table: %w", err)
	}
	defer rows.Close()

	result := model.CurrencyLedgerWithTransactions{Ledger: ledger}
	for rows.Next() {
		var t model.CurrencyTransaction
		var dateStr, createdAtStr, typ string
		var home, rate decimal.NullDecimal

		err := rows.Scan(
			&t.ID,
			&t.LedgerID,
			&dateStr,
			&typ,
			&t.ForeignAmount,
			&home,
			&rate,
			&createdAtStr,
		)
		if err != nil {
			return model.CurrencyLedgerWithTransactions{}, fmt.Errorf("failed to scan currency_transaction table results: %w", err)
		}

		t.Type = model.CurrencyTransactionType(typ)
		t.HomeAmount = model.OptionalFromNull(home)
		t.ExchangeRate = model.OptionalFromNull(rate)
		t.Date, err = ParseTime(dateStr)
		if err != nil {
			return model.CurrencyLedgerWithTransactions{}, fmt.Errorf("failed to parse date: %w", err)
		}
		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return model.CurrencyLedgerWithTransactions{}, fmt.Errorf("failed to parse created_at: %w", err)
		}

		result.Transactions = append(result.Transactions, t)
	}

	if err = rows.Err(); err != nil {
		return model.CurrencyLedgerWithTransactions{}, fmt.Errorf("error iterating currency_transaction table: %w", err)
	}

	return result, nil
}

// InsertLedger stores a new currency ledger.
func (r *LedgerRepository) InsertLedger(ctx context.Context, l model.CurrencyLedger) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO currency_ledger (id, name, currency, home_currency) VALUES (?, ?, ?, ?)`,
		l.ID, l.Name, l.Currency, l.HomeCurrency,
	)
	if err != nil {
		return fmt.Errorf("failed to insert currency_ledger: %w", err)
	}
	return nil
}

// InsertTransaction stores a ledger movement.
func (r *LedgerRepository) InsertTransaction(ctx context.Context, t model.CurrencyTransaction) error {
	query := `
		INSERT INTO currency_transaction (id, ledger_id, date, type, foreign_amount, home_amount, exchange_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.LedgerID,
		formatDate(t.Date),
		string(t.Type),
		t.ForeignAmount,
		t.HomeAmount.Null(),
		t.ExchangeRate.Null(),
		formatTimestamp(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert currency_transaction: %w", err)
	}

	return nil
}
