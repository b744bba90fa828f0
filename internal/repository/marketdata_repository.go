package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/model"
)

// MarketDataRepository provides data access methods for the
// market_data_cache table holding historical prices and exchange rates.
type MarketDataRepository struct {
	db *sql.DB
}

// NewMarketDataRepository creates a new MarketDataRepository with the provided database connection.
func NewMarketDataRepository(db *sql.DB) *MarketDataRepository {
	return &MarketDataRepository{db: db}
}

// Get looks up a cached entry. The boolean is false when nothing is stored.
func (r *MarketDataRepository) Get(ctx context.Context, kind model.MarketDataKind, key string, date time.Time) (model.MarketDataEntry, bool, error) {
	query := `
		SELECT kind, cache_key, date, value, actual_date, source, fetched_at, is_unavailable
		FROM market_data_cache
		WHERE kind = ? AND cache_key = ? AND date = ?
	`

	var e model.MarketDataEntry
	var kindStr, dateStr, fetchedAtStr string
	var value decimal.NullDecimal
	var actualDate sql.NullString

	err := r.db.QueryRowContext(ctx, query, string(kind), key, formatDate(date)).Scan(
		&kindStr,
		&e.Key,
		&dateStr,
		&value,
		&actualDate,
		&e.Source,
		&fetchedAtStr,
		&e.IsUnavailable,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MarketDataEntry{}, false, nil
	}
	if err != nil {
		return model.MarketDataEntry{}, false, fmt.Errorf("failed to query market_data_cache: %w", err)
	}

	e.Kind = model.MarketDataKind(kindStr)
	e.Value = value.Decimal
	if e.Date, err = ParseTime(dateStr); err != nil {
		return model.MarketDataEntry{}, false, fmt.Errorf("failed to parse date: %w", err)
	}
	if actualDate.Valid {
		if e.ActualDate, err = ParseTime(actualDate.String); err != nil {
			return model.MarketDataEntry{}, false, fmt.Errorf("failed to parse actual_date: %w", err)
		}
	}
	if e.FetchedAt, err = ParseTime(fetchedAtStr); err != nil {
		return model.MarketDataEntry{}, false, fmt.Errorf("failed to parse fetched_at: %w", err)
	}

	return e, true, nil
}

// Insert writes an entry once. A row that already exists for the same key
// and date is left untouched, so concurrent writers cannot overwrite each
// other.
func (r *MarketDataRepository) Insert(ctx context.Context, e model.MarketDataEntry) error {
	query := `
		INSERT INTO market_data_cache (kind, cache_key, date, value, actual_date, source, fetched_at, is_unavailable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, cache_key, date) DO NOTHING
	`

	value := decimal.NullDecimal{Decimal: e.Value, Valid: !e.IsUnavailable}
	var actualDate sql.NullString
	if !e.ActualDate.IsZero() {
		actualDate = sql.NullString{String: formatDate(e.ActualDate), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		string(e.Kind),
		e.Key,
		formatDate(e.Date),
		value,
		actualDate,
		e.Source,
		formatTimestamp(e.FetchedAt),
		e.IsUnavailable,
	)
	if err != nil {
		return fmt.Errorf("failed to insert market_data_cache: %w", err)
	}

	return nil
}
