package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/portfolio-performance/internal/model"
)

// SnapshotRepository provides data access methods for the
// transaction_snapshot table.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// GetForDate retrieves the snapshots of one portfolio day in chain order.
func (r *SnapshotRepository) GetForDate(ctx context.Context, portfolioID string, date time.Time) ([]model.TransactionSnapshot, error) {
	return r.GetRange(ctx, portfolioID, date, date)
}

// GetRange retrieves snapshots with snapshot_date in [from, to], ordered by
// date and then chain position.
func (r *SnapshotRepository) GetRange(ctx context.Context, portfolioID string, from, to time.Time) ([]model.TransactionSnapshot, error) {
	query := `
		SELECT id, portfolio_id, transaction_id, snapshot_date,
		       value_before_home, value_after_home, value_before_source, value_after_source,
		       created_at
		FROM transaction_snapshot
		WHERE portfolio_id = ?
		AND snapshot_date >= ?
		AND snapshot_date <= ?
		ORDER BY snapshot_date ASC, created_at ASC, rowid ASC
	`

	rows, err := r.db.QueryContext(ctx, query, portfolioID, formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction_snapshot: %w", err)
	}
	defer rows.Close()

	var snapshots []model.TransactionSnapshot
	for rows.Next() {
		var s model.TransactionSnapshot
		var dateStr, createdAtStr string

		err := rows.Scan(
			&s.ID,
			&s.PortfolioID,
			&s.TransactionID,
			&dateStr,
			&s.ValueBeforeHome,
			&s.ValueAfterHome,
			&s.ValueBeforeSource,
			&s.ValueAfterSource,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		s.SnapshotDate, err = ParseTime(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot_date: %w", err)
		}
		s.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return snapshots, nil
}

// ReplaceForDate atomically swaps the stored snapshots of one portfolio day
// for the given set. Either every row is replaced or none is.
func (r *SnapshotRepository) ReplaceForDate(ctx context.Context, portfolioID string, date time.Time, snapshots []model.TransactionSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transaction_snapshot WHERE portfolio_id = ? AND snapshot_date = ?`,
		portfolioID, formatDate(date),
	); err != nil {
		return fmt.Errorf("failed to delete transaction_snapshot: %w", err)
	}

	if err := insertSnapshots(ctx, tx, snapshots); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteFrom removes every snapshot of the portfolio dated on or after date.
func (r *SnapshotRepository) DeleteFrom(ctx context.Context, portfolioID string, date time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transaction_snapshot WHERE portfolio_id = ? AND snapshot_date >= ?`,
		portfolioID, formatDate(date),
	)
	if err != nil {
		return fmt.Errorf("failed to delete transaction_snapshot: %w", err)
	}
	return nil
}

func insertSnapshots(ctx context.Context, q querier, snapshots []model.TransactionSnapshot) error {
	query := `
		INSERT INTO transaction_snapshot (
			id, portfolio_id, transaction_id, snapshot_date,
			value_before_home, value_after_home, value_before_source, value_after_source,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, s := range snapshots {
		_, err := q.ExecContext(ctx, query,
			s.ID,
			s.PortfolioID,
			s.TransactionID,
			formatDate(s.SnapshotDate),
			s.ValueBeforeHome,
			s.ValueAfterHome,
			s.ValueBeforeSource,
			s.ValueAfterSource,
			formatTimestamp(s.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction_snapshot: %w", err)
		}
	}
	return nil
}
