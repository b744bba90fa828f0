package calc

import (
	"cmp"
	"slices"

	"github.com/ndewijer/portfolio-performance/internal/model"
)

// OrderSameDay sorts a single day's transactions by creation sequence.
func OrderSameDay(txs []model.Transaction) []model.Transaction {
	ordered := slices.Clone(txs)
	slices.SortStableFunc(ordered, func(a, b model.Transaction) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return ordered
}

// ChainSameDay builds one snapshot per transaction of a single day.
//
// before is the portfolio value prior to the day's first transaction and
// endOfDay the value after all of them. Intraday prices are not available,
// so every after and every later before equal endOfDay, which keeps the
// chain invariant after[i] == before[i+1]. IDs are left empty.
func ChainSameDay(txs []model.Transaction, before, endOfDay model.Valuation) []model.TransactionSnapshot {
	ordered := OrderSameDay(txs)
	snapshots := make([]model.TransactionSnapshot, len(ordered))
	for i, tx := range ordered {
		b := endOfDay
		if i == 0 {
			b = before
		}
		snapshots[i] = model.TransactionSnapshot{
			PortfolioID:       tx.PortfolioID,
			TransactionID:     tx.ID,
			SnapshotDate:      tx.Date,
			ValueBeforeHome:   b.Home,
			ValueAfterHome:    endOfDay.Home,
			ValueBeforeSource: b.Source,
			ValueAfterSource:  endOfDay.Source,
		}
	}
	return snapshots
}

// IsChained reports whether ordered same-day snapshots satisfy
// after[i] == before[i+1] in both currencies.
func IsChained(snapshots []model.TransactionSnapshot) bool {
	for i := 1; i < len(snapshots); i++ {
		prev, cur := snapshots[i-1], snapshots[i]
		if !prev.ValueAfterHome.Equal(cur.ValueBeforeHome) || !prev.ValueAfterSource.Equal(cur.ValueBeforeSource) {
			return false
		}
	}
	return true
}
