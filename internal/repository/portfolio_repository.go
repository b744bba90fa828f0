package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
)

// PortfolioRepository provides data access methods for the portfolio table.
type PortfolioRepository struct {
	db *sql.DB
}

// NewPortfolioRepository creates a new PortfolioRepository with the provided database connection.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// GetPortfolio retrieves a single portfolio by ID.
// Returns apperrors.ErrPortfolioNotFound when no row matches.
func (r *PortfolioRepository) GetPortfolio(ctx context.Context, portfolioID string) (model.Portfolio, error) {
	query := `
		SELECT id, name, base_currency, home_currency, bound_ledger_id
		FROM portfolio
		WHERE id = ?
	`

	var p model.Portfolio
	var boundLedger sql.NullString
	err := r.db.QueryRowContext(ctx, query, portfolioID).Scan(
		&p.ID,
		&p.Name,
		&p.BaseCurrency,
		&p.HomeCurrency,
		&boundLedger,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Portfolio{}, apperrors.ErrPortfolioNotFound
	}
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to query portfolio: %w", err)
	}
	p.BoundLedgerID = boundLedger.String

	return p, nil
}

// GetPortfolioIDs returns the IDs of every portfolio, used by the backfill job.
func (r *PortfolioRepository) GetPortfolioIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM portfolio ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio table results: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}

	return ids, nil
}

// InsertPortfolio stores a new portfolio.
func (r *PortfolioRepository) InsertPortfolio(ctx context.Context, p model.Portfolio) error {
	query := `
		INSERT INTO portfolio (id, name, base_currency, home_currency, bound_ledger_id)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.BaseCurrency,
		p.HomeCurrency,
		nullString(p.BoundLedgerID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}

	return nil
}
