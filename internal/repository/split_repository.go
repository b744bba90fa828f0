package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/portfolio-performance/internal/model"
)

// SplitRepository provides data access methods for the stock_split table.
type SplitRepository struct {
	db *sql.DB
}

// NewSplitRepository creates a new SplitRepository with the provided database connection.
func NewSplitRepository(db *sql.DB) *SplitRepository {
	return &SplitRepository{db: db}
}

// GetAll retrieves every recorded split ordered by effective date.
func (r *SplitRepository) GetAll(ctx context.Context) ([]model.StockSplit, error) {
	query := `
		SELECT id, symbol, market, effective_date, ratio
		FROM stock_split
		ORDER BY effective_date ASC, symbol ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock_split table: %w", err)
	}
	defer rows.Close()

	var splits []model.StockSplit
	for rows.Next() {
		var s model.StockSplit
		var market, dateStr string
		if err := rows.Scan(&s.ID, &s.Symbol, &market, &dateStr, &s.Ratio); err != nil {
			return nil, fmt.Errorf("failed to scan stock_split table results: %w", err)
		}
		s.Market = model.Market(market)
		s.EffectiveDate, err = ParseTime(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse effective_date: %w", err)
		}
		splits = append(splits, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock_split table: %w", err)
	}

	return splits, nil
}

// Insert stores a split. A second split for the same symbol and day is
// rejected by the unique constraint.
func (r *SplitRepository) Insert(ctx context.Context, s model.StockSplit) error {
	query := `
		INSERT INTO stock_split (id, symbol, market, effective_date, ratio)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Symbol,
		string(s.Market),
		formatDate(s.EffectiveDate),
		s.Ratio,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stock_split: %w", err)
	}

	return nil
}
